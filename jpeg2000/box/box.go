// Package box parses and builds the box structure of JP2 and JPX files.
//
// A box is a length-prefixed, typed chunk:
//   - 4-byte big-endian length (1 = 8-byte extended length follows, 0 = box
//     runs to the end of its enclosing scope)
//   - 4-byte type code
//   - payload, which is either a sequence of child boxes (super-boxes) or
//     type specific fields
package box

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned by payload decoders when fields run past the payload.
	ErrTruncated = errors.New("box payload truncated")

	// ErrNoSource is returned when a lazily referenced codestream has nothing to copy from.
	ErrNoSource = errors.New("codestream box has no data source")
)

// Payload is the decoded content of a leaf box.
type Payload interface {
	BoxType() Type
	MarshalBinary() ([]byte, error)
}

// Box is a node of the box tree. Super-boxes carry Children; leaf boxes
// carry Raw (the original payload) and, when the type is known and the
// payload decoded cleanly, Fields.
type Box struct {
	Type         Type
	Offset       int64 // offset of the box header
	Length       int64 // total length including the header
	HeaderLength int   // 8, or 16 when the extended length field is used

	Children []*Box
	Fields   Payload
	Raw      []byte
}

// New builds a fresh leaf box around p. Offsets are assigned by Layout.
func New(p Payload) *Box {
	return &Box{Type: p.BoxType(), Fields: p, HeaderLength: 8}
}

// NewSuper builds a fresh super-box.
func NewSuper(t Type, children ...*Box) *Box {
	return &Box{Type: t, Children: children, HeaderLength: 8}
}

// IsSuper reports whether b holds child boxes.
func (b *Box) IsSuper() bool {
	return IsContainer(b.Type)
}

// LongName returns the descriptive name of the box type.
func (b *Box) LongName() string {
	return LongName(b.Type)
}

// PayloadOffset returns the file offset of the first payload byte.
func (b *Box) PayloadOffset() int64 {
	return b.Offset + int64(b.HeaderLength)
}

// PayloadLength returns the payload size in bytes.
func (b *Box) PayloadLength() int64 {
	return b.Length - int64(b.HeaderLength)
}

func (b *Box) String() string {
	return fmt.Sprintf("%s Box (%s) @ (%d, %d)", b.LongName(), b.Type, b.Offset, b.Length)
}

// Find returns the first box of type t in depth-first order.
func Find(boxes []*Box, t Type) *Box {
	var found *Box
	_ = Walk(boxes, func(b *Box, _ int) error {
		if b.Type == t {
			found = b
			return errStopWalk
		}
		return nil
	})
	return found
}

// FindAll returns every box of type t in depth-first order.
func FindAll(boxes []*Box, t Type) []*Box {
	var out []*Box
	_ = Walk(boxes, func(b *Box, _ int) error {
		if b.Type == t {
			out = append(out, b)
		}
		return nil
	})
	return out
}

var errStopWalk = errors.New("stop walk")

// Walk visits every box depth-first. Returning an error from fn stops the walk.
func Walk(boxes []*Box, fn func(b *Box, depth int) error) error {
	err := walk(boxes, 0, fn)
	if errors.Is(err, errStopWalk) {
		return nil
	}
	return err
}

func walk(boxes []*Box, depth int, fn func(*Box, int) error) error {
	for _, b := range boxes {
		if err := fn(b, depth); err != nil {
			return err
		}
		if err := walk(b.Children, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
