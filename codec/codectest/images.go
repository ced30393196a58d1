package codectest

import "github.com/cocosip/go-jp2k/samples"

// Gradient returns an 8-bit test image whose samples encode their position,
// so that crops and reductions can be checked by value. components <= 0
// yields a 2D image.
func Gradient(rows, cols, components int) *samples.Samples {
	img := samples.New(rows, cols, components)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			for k := 0; k < img.Components(); k++ {
				img.Set(r, c, k, Value(r, c, k))
			}
		}
	}
	return img
}

// Value is the sample Gradient stores at (row, col, comp).
func Value(row, col, comp int) int32 {
	return int32((row*7 + col*3 + comp*50) % 256)
}
