package engine

import (
	"io/fs"

	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/rotisserie/eris"
)

// ErrResourceLoadFailure is returned when a collaborator fails to create a texture, shader,
// material or physics body.
var ErrResourceLoadFailure = eris.New("failed to load resource")

// Handle is an opaque reference to an object owned by a collaborator. Zero is never a valid handle.
type Handle uint64

// DrawCommand is one sprite draw submitted to the renderer.
type DrawCommand struct {
	Entity   ecs.EntityID
	Material Handle
	Layer    int
	Position Vec3
	Rotation float64
	Scale    Vec3
	Model    [16]float64 // Column-major model matrix, see SpriteMatrix
}

// Renderer receives draw commands. SubmitDraw is called from parallel systems, so it must be safe
// for concurrent use.
type Renderer interface {
	SubmitDraw(cmd DrawCommand) error
}

// FrameRenderer is a Renderer that needs to know where frames begin and end. The engine calls
// StartFrame before a frame's systems run and EndFrame after they all finished.
type FrameRenderer interface {
	Renderer
	StartFrame() error
	EndFrame() error
}

// ShaderStage is the pipeline stage a shader runs in.
type ShaderStage uint8

const (
	ShaderVertex ShaderStage = 0
	ShaderPixel  ShaderStage = 1
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderVertex:
		return "vertex"
	case ShaderPixel:
		return "pixel"
	default:
		return "unknown"
	}
}

// MaterialDesc describes a material to create from already loaded shaders and textures.
type MaterialDesc struct {
	Name         string
	VertexShader Handle
	PixelShader  Handle
	IsInstanced  bool
	Textures     map[string]Handle // Shader binding key -> texture
	Ints         map[string]int
	Floats       map[string]float64
}

// AssetBackend creates GPU-side resources from file contents.
type AssetBackend interface {
	LoadTexture(path string, data []byte) (Handle, error)
	CreateShader(path string, stage ShaderStage, data []byte) (Handle, error)
	CreateMaterial(desc MaterialDesc) (Handle, error)
}

// BodyDesc describes a rigid body to create.
type BodyDesc struct {
	Entity   ecs.EntityID
	Shape    BodyShape
	Position Vec3
	Width    float64
	Height   float64
	Radius   float64
}

// Physics owns the simulation of rigid bodies.
type Physics interface {
	CreateRigidBody(desc BodyDesc) (Handle, error)
}

// FileSystem reads asset files.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// FSFileSystem adapts an fs.FS, such as an embed.FS or os.DirFS, to FileSystem.
type FSFileSystem struct {
	FS fs.FS
}

func (f FSFileSystem) ReadFile(path string) ([]byte, error) {
	return fs.ReadFile(f.FS, path)
}
