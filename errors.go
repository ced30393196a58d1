package jp2k

import (
	"errors"

	"github.com/cocosip/go-jp2k/jpeg2000/region"
)

var (
	// ErrInvalidRequest is returned for reads and writes whose arguments do
	// not fit the image. It is the same value as region.ErrInvalidRequest.
	ErrInvalidRequest = region.ErrInvalidRequest

	// ErrNotFound is returned when the file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrNotJPEG2000 is returned when the data is neither a JP2 family file
	// nor a raw codestream.
	ErrNotJPEG2000 = errors.New("not a JPEG 2000 file")

	// ErrDecode is returned when the codec cannot decode the codestream.
	ErrDecode = errors.New("decode failed")

	// ErrEncode is returned when the codec cannot encode the image.
	ErrEncode = errors.New("encode failed")
)
