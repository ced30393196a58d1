package samples

import (
	"errors"
	"testing"
)

func ramp(rows, cols, comps int) *Samples {
	s := New(rows, cols, comps)
	nc := s.Components()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for k := 0; k < nc; k++ {
				s.Set(r, c, k, int32(r*1000+c*10+k))
			}
		}
	}
	return s
}

func TestNewShapes(t *testing.T) {
	tests := []struct {
		name  string
		comps int
		dims  int
		nc    int
	}{
		{"2D", 0, 2, 1},
		{"3D single", 1, 3, 1},
		{"3D rgb", 3, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(4, 5, tt.comps)
			if s.Dims() != tt.dims || s.Components() != tt.nc {
				t.Errorf("Dims=%d Components=%d, want %d %d", s.Dims(), s.Components(), tt.dims, tt.nc)
			}
			if len(s.Data) != 4*5*tt.nc {
				t.Errorf("Data len = %d", len(s.Data))
			}
		})
	}
}

func TestFromShape(t *testing.T) {
	if _, err := FromShape([]int{2, 2, 2, 2}, make([]int32, 16)); err != nil {
		t.Errorf("4D shape should be representable: %v", err)
	}
	if _, err := FromShape([]int{2, 3}, make([]int32, 5)); !errors.Is(err, ErrShape) {
		t.Errorf("Expected ErrShape, got %v", err)
	}
}

func TestCrop(t *testing.T) {
	s := ramp(8, 8, 3)

	sub, err := s.Crop(2, 1, 7, 8, 2, 3)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if sub.Rows() != 3 || sub.Cols() != 3 || sub.Components() != 3 {
		t.Fatalf("Crop shape = %v", sub.Shape)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			for k := 0; k < 3; k++ {
				if got, want := sub.At(r, c, k), s.At(2+2*r, 1+3*c, k); got != want {
					t.Errorf("sub(%d,%d,%d) = %d, want %d", r, c, k, got, want)
				}
			}
		}
	}

	if _, err := s.Crop(0, 0, 9, 8, 1, 1); !errors.Is(err, ErrShape) {
		t.Errorf("Expected ErrShape for out of range crop, got %v", err)
	}
	if _, err := s.Crop(0, 0, 8, 8, 0, 1); !errors.Is(err, ErrShape) {
		t.Errorf("Expected ErrShape for zero step, got %v", err)
	}
}

func TestCropKeepsRank(t *testing.T) {
	s := ramp(4, 4, 0)
	sub, err := s.Crop(0, 0, 4, 4, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Dims() != 2 {
		t.Errorf("Crop of 2D array has rank %d", sub.Dims())
	}
	if !sub.Equal(&Samples{Shape: []int{2, 2}, Data: []int32{0, 20, 2000, 2020}}) {
		t.Errorf("Unexpected crop %v", sub.Data)
	}
}
