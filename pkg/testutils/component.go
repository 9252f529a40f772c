package testutils

// -------------------------------------------------------------------------------------------------
// Components
// -------------------------------------------------------------------------------------------------

type Position struct {
	X, Y, Z float64
}

func (Position) Name() string {
	return "position"
}

type Velocity struct {
	X, Y, Z float64
}

func (Velocity) Name() string {
	return "velocity"
}

type Health struct {
	HP    int
	Armor int
}

func (Health) Name() string {
	return "health"
}

type Label struct {
	Text  string
	Flags uint16
}

func (Label) Name() string {
	return "label"
}

// Tag has no fields. Tags mark entities without storing data.
type Tag struct{}

func (Tag) Name() string {
	return "tag"
}

// RawName is the name tests register a 12 byte, 4 byte aligned raw component under.
const RawName = "raw_vec3f"

// RawSize and RawAlign are the layout of the raw test component.
const (
	RawSize  = 12
	RawAlign = 4
)
