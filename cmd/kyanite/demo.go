package main

import (
	"context"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/kyanite-engine/kyanite/internal/demo"
	"github.com/kyanite-engine/kyanite/internal/termrender"
	"github.com/kyanite-engine/kyanite/pkg/engine"
	"github.com/kyanite-engine/kyanite/pkg/telemetry"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newDemoCmd() *cobra.Command {
	var (
		opts    demo.Options
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the terminal demo, press q or Esc to quit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context(), opts, logFile)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.Ships, "ships", 12, "number of ships")
	flags.IntVar(&opts.Stars, "stars", 80, "number of background stars")
	flags.Float64Var(&opts.MaxSpeed, "speed", 8, "maximum ship speed in cells per second")
	flags.Uint64Var(&opts.Seed, "seed", uint64(time.Now().UnixNano()), "random seed") //nolint:gosec // not negative
	flags.StringVar(&logFile, "log-file", "kyanite-demo.log", "file logs are written to while the screen is in use")
	return cmd
}

func runDemo(ctx context.Context, opts demo.Options, logFile string) error {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // user supplied path
	if err != nil {
		return eris.Wrap(err, "failed to open log file")
	}
	defer f.Close()

	tel, err := telemetry.New(telemetry.Options{ServiceName: "kyanite-demo", LogWriter: f})
	if err != nil {
		return eris.Wrap(err, "failed to set up telemetry")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			tel.Logger.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}()
	logger := tel.GetLogger("demo")

	screen, err := tcell.NewScreen()
	if err != nil {
		return eris.Wrap(err, "failed to create screen")
	}
	if err := screen.Init(); err != nil {
		return eris.Wrap(err, "failed to init screen")
	}
	defer screen.Fini()
	screen.HideCursor()

	term := termrender.New(screen, tel.GetLogger("termrender"))
	eng, err := engine.New(engine.Options{Files: demo.Files(), Assets: term, Renderer: term}, tel)
	if err != nil {
		return err
	}

	cam := term.Camera()
	opts.Arena = demo.Arena{Width: float64(cam.Width / 2), Height: float64(cam.Height)}
	if err := demo.Setup(eng, opts); err != nil {
		return err
	}
	logger.Info().Int("ships", opts.Ships).Uint64("seed", opts.Seed).
		Float64("width", opts.Arena.Width).Float64("height", opts.Arena.Height).Msg("demo scene ready")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go pollInput(screen, term, cancel)

	return eng.Run(ctx)
}

// pollInput handles terminal events until the screen is closed or the user quits.
func pollInput(screen tcell.Screen, term *termrender.Screen, quit context.CancelFunc) {
	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			term.Resize()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				quit()
				return
			}
		}
	}
}
