package ecs

import (
	"unsafe"

	"github.com/kyanite-engine/kyanite/pkg/assert"
	"github.com/rotisserie/eris"
)

// columnFactory is a function that creates a new abstractColumn instance.
type columnFactory func() abstractColumn

// abstractColumn is an internal interface for generic column operations.
type abstractColumn interface {
	len() int
	name() string
	extend()
	remove(row int)
	copyRow(dst abstractColumn, srcRow, dstRow int)

	setAbstract(row int, component Component) error
	getAbstract(row int) Component
}

var _ abstractColumn = &column[Component]{}
var _ abstractColumn = &rawColumn{}

// column stores the component data of entities in an archetype. The length of the components slice
// must match the length of the entities slice in the archetype.
type column[T Component] struct {
	compName   string // The name of the component stored in this column
	components []T    // Array containing the component data
}

// newColumn creates a new column with the specified type.
func newColumn[T Component]() column[T] {
	var zero T
	const initialCapacity = 16
	return column[T]{
		compName:   zero.Name(),
		components: make([]T, 0, initialCapacity),
	}
}

// newColumnFactory returns a function that constructs a new column of type T.
func newColumnFactory[T Component]() columnFactory {
	return func() abstractColumn {
		col := newColumn[T]()
		return &col
	}
}

func (c *column[T]) len() int {
	return len(c.components)
}

func (c *column[T]) name() string {
	return c.compName
}

// extend adds a new row to the components slice initialized with the zero value.
func (c *column[T]) extend() {
	var zero T
	c.components = append(c.components, zero)
}

// remove swaps the last row into the removed row and truncates the slice.
func (c *column[T]) remove(row int) {
	assert.That(row < len(c.components), "tried to remove component that doesn't exist")

	lastIndex := len(c.components) - 1
	c.components[row] = c.components[lastIndex]

	// Clear the stale tail so the garbage collector can release anything it references.
	var zero T
	c.components[lastIndex] = zero
	c.components = c.components[:lastIndex]
}

// copyRow copies the value in srcRow into dstRow of dst, which must be a column of the same type.
func (c *column[T]) copyRow(dst abstractColumn, srcRow, dstRow int) {
	target, ok := dst.(*column[T])
	assert.That(ok, "copying between columns of different types")
	target.components[dstRow] = c.components[srcRow]
}

// set sets the component in a given row. Prefer this over setAbstract since it avoids boxing.
func (c *column[T]) set(row int, component T) {
	assert.That(row < len(c.components), "column isn't extended when entity is created")
	c.components[row] = component
}

// setAbstract sets the component in a given row when the concrete type isn't known.
func (c *column[T]) setAbstract(row int, component Component) error {
	concrete, ok := component.(T)
	if !ok {
		return eris.Errorf("component %s has unexpected type %T", c.compName, component)
	}
	c.set(row, concrete)
	return nil
}

// get returns a pointer to the value in a given row. The pointer is valid until the next
// structural mutation of the archetype.
func (c *column[T]) get(row int) *T {
	assert.That(row < len(c.components), "component doesn't exist")
	return &c.components[row]
}

// getAbstract returns a copy of the value in a given row.
func (c *column[T]) getAbstract(row int) Component {
	return *c.get(row)
}

// window returns the rows [start, end). The capacity is clipped so appends can't clobber rows
// outside the window.
func (c *column[T]) window(start, end int) []T {
	return c.components[start:end:end]
}

// -------------------------------------------------------------------------------------------------
// Raw columns
// -------------------------------------------------------------------------------------------------

// rawColumn stores byte-addressed components. Each row occupies stride bytes, where stride is the
// component size rounded up to its alignment. The backing array is aligned to the component's
// alignment.
type rawColumn struct {
	compName string
	size     int
	stride   int
	align    int
	rows     int
	data     []byte // len(data) == rows*stride
}

// newRawColumnFactory returns a function that constructs a new raw column for the layout.
func newRawColumnFactory(name string, layout Layout) columnFactory {
	return func() abstractColumn {
		size := int(layout.Size)   //nolint:gosec // component sizes are small
		align := int(layout.Align) //nolint:gosec // component alignments are small
		stride := (size + align - 1) &^ (align - 1)
		return &rawColumn{
			compName: name,
			size:     size,
			stride:   stride,
			align:    align,
			data:     alignedBytes(0, stride*16, align),
		}
	}
}

// alignedBytes allocates a byte slice of length n and capacity capacity whose first byte is
// aligned to align.
func alignedBytes(n, capacity, align int) []byte {
	backing := make([]byte, capacity+align)
	offset := 0
	if r := int(uintptr(unsafe.Pointer(unsafe.SliceData(backing))) % uintptr(align)); r != 0 { //nolint:gosec // it's ok
		offset = align - r
	}
	return backing[offset : offset+n : offset+capacity]
}

func (c *rawColumn) len() int {
	return c.rows
}

func (c *rawColumn) name() string {
	return c.compName
}

// extend adds a zeroed row, doubling the backing array when it is full.
func (c *rawColumn) extend() {
	need := (c.rows + 1) * c.stride
	if need > cap(c.data) {
		grown := alignedBytes(len(c.data), max(cap(c.data)*2, need), c.align)
		copy(grown, c.data)
		c.data = grown
	}
	c.data = c.data[:need]
	clear(c.data[c.rows*c.stride : need])
	c.rows++
}

// remove swaps the last row into the removed row and truncates the column.
func (c *rawColumn) remove(row int) {
	assert.That(row < c.rows, "tried to remove component that doesn't exist")

	lastIndex := c.rows - 1
	if row != lastIndex {
		copy(c.row(row), c.row(lastIndex))
	}
	c.rows--
	c.data = c.data[:c.rows*c.stride]
}

// copyRow copies the bytes in srcRow into dstRow of dst, which must be a raw column of the same
// layout.
func (c *rawColumn) copyRow(dst abstractColumn, srcRow, dstRow int) {
	target, ok := dst.(*rawColumn)
	assert.That(ok && target.stride == c.stride, "copying between columns of different layouts")
	copy(target.row(dstRow), c.row(srcRow))
}

// row returns the bytes of a row. The slice aliases the column and is only valid until the next
// structural mutation.
func (c *rawColumn) row(row int) []byte {
	assert.That(row < c.rows, "component doesn't exist")
	start := row * c.stride
	return c.data[start : start+c.size : start+c.size]
}

func (c *rawColumn) setAbstract(row int, component Component) error {
	raw, ok := component.(RawComponent)
	if !ok {
		return eris.Errorf("component %s is raw and must be set with RawComponent", c.compName)
	}
	if len(raw.Data) != c.size {
		return eris.Errorf("component %s expects %d bytes, got %d", c.compName, c.size, len(raw.Data))
	}
	copy(c.row(row), raw.Data)
	return nil
}

// getAbstract returns a copy of the row's bytes wrapped in a RawComponent.
func (c *rawColumn) getAbstract(row int) Component {
	data := make([]byte, c.size)
	copy(data, c.row(row))
	return RawComponent{Type: c.compName, Data: data}
}

// window returns the packed bytes of rows [start, end).
func (c *rawColumn) window(start, end int) []byte {
	return c.data[start*c.stride : end*c.stride : end*c.stride]
}
