package engine_test

import (
	"sync"

	"github.com/kyanite-engine/kyanite/pkg/engine"
	"github.com/rotisserie/eris"
)

// recordingRenderer collects draw commands.
type recordingRenderer struct {
	mu    sync.Mutex
	draws []engine.DrawCommand
	fail  bool
}

func (r *recordingRenderer) SubmitDraw(cmd engine.DrawCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return eris.New("device lost")
	}
	r.draws = append(r.draws, cmd)
	return nil
}

// countingBackend hands out sequential handles and records what it created.
type countingBackend struct {
	mu        sync.Mutex
	next      engine.Handle
	textures  map[string][]byte
	shaders   map[string]engine.ShaderStage
	materials []engine.MaterialDesc
	failPath  string
}

func newCountingBackend() *countingBackend {
	return &countingBackend{
		textures: make(map[string][]byte),
		shaders:  make(map[string]engine.ShaderStage),
	}
}

func (b *countingBackend) handle() engine.Handle {
	b.next++
	return b.next
}

func (b *countingBackend) LoadTexture(path string, data []byte) (engine.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if path == b.failPath {
		return 0, eris.New("unsupported format")
	}
	b.textures[path] = data
	return b.handle(), nil
}

func (b *countingBackend) CreateShader(path string, stage engine.ShaderStage, _ []byte) (engine.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if path == b.failPath {
		return 0, eris.New("compile error")
	}
	b.shaders[path] = stage
	return b.handle(), nil
}

func (b *countingBackend) CreateMaterial(desc engine.MaterialDesc) (engine.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.materials = append(b.materials, desc)
	return b.handle(), nil
}

// countingPhysics creates bodies with sequential handles.
type countingPhysics struct {
	mu     sync.Mutex
	bodies []engine.BodyDesc
	fail   bool
}

func (p *countingPhysics) CreateRigidBody(desc engine.BodyDesc) (engine.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return 0, eris.New("out of bodies")
	}
	p.bodies = append(p.bodies, desc)
	return engine.Handle(len(p.bodies)), nil
}

// framingRenderer counts frame boundaries and checks draws land inside a frame.
type framingRenderer struct {
	recordingRenderer
	starts, ends int
	outside      int
	failEnd      bool
}

func (r *framingRenderer) SubmitDraw(cmd engine.DrawCommand) error {
	r.mu.Lock()
	if r.starts == r.ends {
		r.outside++
	}
	r.mu.Unlock()
	return r.recordingRenderer.SubmitDraw(cmd)
}

func (r *framingRenderer) StartFrame() error {
	r.starts++
	return nil
}

func (r *framingRenderer) EndFrame() error {
	r.ends++
	if r.failEnd {
		return eris.New("present failed")
	}
	return nil
}
