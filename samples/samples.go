// Package samples holds decoded image sample arrays.
package samples

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a sample array's shape and data disagree.
var ErrShape = errors.New("invalid sample array shape")

// Samples is a dense, row-major array of image samples. Components are
// interleaved: the sample for (row, col, comp) lives at
// (row*cols+col)*components+comp.
//
// Shape is (rows, cols) for single component images and
// (rows, cols, components) otherwise. Other ranks can be represented so that
// writers can reject them.
type Samples struct {
	Shape     []int
	Data      []int32
	Precision int  // bits per sample
	Signed    bool // samples are two's complement
}

// New returns a zeroed array. components <= 0 yields a 2D array.
func New(rows, cols, components int) *Samples {
	s := &Samples{Precision: 8}
	if components <= 0 {
		s.Shape = []int{rows, cols}
		components = 1
	} else {
		s.Shape = []int{rows, cols, components}
	}
	s.Data = make([]int32, rows*cols*components)
	return s
}

// FromShape wraps data with an arbitrary shape. The product of shape must
// match len(data).
func FromShape(shape []int, data []int32) (*Samples, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrShape, d)
		}
		n *= d
	}
	if len(shape) == 0 || n != len(data) {
		return nil, fmt.Errorf("%w: shape %v holds %d samples, got %d", ErrShape, shape, n, len(data))
	}
	return &Samples{Shape: append([]int(nil), shape...), Data: data, Precision: 8}, nil
}

// Dims returns the rank of the array.
func (s *Samples) Dims() int { return len(s.Shape) }

// Rows returns the number of rows.
func (s *Samples) Rows() int { return s.dim(0) }

// Cols returns the number of columns.
func (s *Samples) Cols() int { return s.dim(1) }

// Components returns the number of interleaved components; 1 for 2D arrays.
func (s *Samples) Components() int {
	if len(s.Shape) < 3 {
		return 1
	}
	return s.Shape[2]
}

func (s *Samples) dim(i int) int {
	if i >= len(s.Shape) {
		return 0
	}
	return s.Shape[i]
}

// At returns the sample at (row, col, comp).
func (s *Samples) At(row, col, comp int) int32 {
	return s.Data[(row*s.Cols()+col)*s.Components()+comp]
}

// Set stores v at (row, col, comp).
func (s *Samples) Set(row, col, comp int, v int32) {
	s.Data[(row*s.Cols()+col)*s.Components()+comp] = v
}

// Crop copies rows [row0,row1) and cols [col0,col1) taking every rowStep-th
// row and colStep-th column. The rank of s is preserved.
func (s *Samples) Crop(row0, col0, row1, col1, rowStep, colStep int) (*Samples, error) {
	if rowStep < 1 || colStep < 1 {
		return nil, fmt.Errorf("%w: step (%d, %d)", ErrShape, rowStep, colStep)
	}
	if row0 < 0 || col0 < 0 || row1 > s.Rows() || col1 > s.Cols() || row0 > row1 || col0 > col1 {
		return nil, fmt.Errorf("%w: crop [%d:%d, %d:%d] outside %dx%d",
			ErrShape, row0, row1, col0, col1, s.Rows(), s.Cols())
	}
	rows := ceilDiv(row1-row0, rowStep)
	cols := ceilDiv(col1-col0, colStep)
	nc := s.Components()

	out := &Samples{Precision: s.Precision, Signed: s.Signed}
	if s.Dims() < 3 {
		out.Shape = []int{rows, cols}
	} else {
		out.Shape = []int{rows, cols, nc}
	}
	out.Data = make([]int32, rows*cols*nc)

	i := 0
	for r := row0; r < row1; r += rowStep {
		base := r * s.Cols()
		for c := col0; c < col1; c += colStep {
			src := (base + c) * nc
			copy(out.Data[i:i+nc], s.Data[src:src+nc])
			i += nc
		}
	}
	return out, nil
}

// Equal reports whether both arrays have the same shape and samples.
func (s *Samples) Equal(o *Samples) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Shape) != len(o.Shape) || len(s.Data) != len(o.Data) {
		return false
	}
	for i := range s.Shape {
		if s.Shape[i] != o.Shape[i] {
			return false
		}
	}
	for i := range s.Data {
		if s.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

func (s *Samples) String() string {
	return fmt.Sprintf("samples%v %d-bit", s.Shape, s.Precision)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
