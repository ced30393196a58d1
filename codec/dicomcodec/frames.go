package dicomcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"

	"github.com/cocosip/go-jp2k/samples"
)

var _ imagetypes.PixelData = (*frameBuffer)(nil)

// frameBuffer is an in-memory imagetypes.PixelData holding one image per frame
type frameBuffer struct {
	frames    [][]byte
	frameInfo *imagetypes.FrameInfo
	encoded   bool
}

func newFrameBuffer(frameInfo *imagetypes.FrameInfo, encoded bool) *frameBuffer {
	return &frameBuffer{frameInfo: frameInfo, encoded: encoded}
}

// GetFrame returns the data of the specified frame (0-indexed)
func (p *frameBuffer) GetFrame(frameIndex int) ([]byte, error) {
	if frameIndex < 0 || frameIndex >= len(p.frames) {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", frameIndex, len(p.frames))
	}
	return p.frames[frameIndex], nil
}

// AddFrame appends a new frame. Native frames must hold exactly one image.
func (p *frameBuffer) AddFrame(frameData []byte) error {
	if len(frameData) == 0 {
		return fmt.Errorf("frame %d is empty", len(p.frames))
	}
	if !p.encoded && p.frameInfo != nil {
		info := p.frameInfo
		want := int(info.Width) * int(info.Height) * int(info.SamplesPerPixel) * ((int(info.BitsAllocated) + 7) / 8)
		if len(frameData) != want {
			return fmt.Errorf("frame %d has %d bytes, want %d", len(p.frames), len(frameData), want)
		}
	}
	p.frames = append(p.frames, frameData)
	return nil
}

// FrameCount returns the number of frames
func (p *frameBuffer) FrameCount() int {
	return len(p.frames)
}

// GetFrameInfo returns frame metadata for codec operations
func (p *frameBuffer) GetFrameInfo() *imagetypes.FrameInfo {
	return p.frameInfo
}

// IsEncapsulated reports whether the frames hold codestreams
func (p *frameBuffer) IsEncapsulated() bool {
	return p.encoded
}

// frameInfo describes samples the way DICOM pixel modules do: one or two
// bytes per sample, interleaved components.
func frameInfo(rows, cols, comps, precision int, signed bool) (*imagetypes.FrameInfo, error) {
	if rows > 0xFFFF || cols > 0xFFFF {
		return nil, fmt.Errorf("image %dx%d exceeds 65535 rows or columns", rows, cols)
	}
	if precision < 1 || precision > 16 {
		return nil, fmt.Errorf("precision %d outside [1, 16]", precision)
	}
	allocated := 8
	if precision > 8 {
		allocated = 16
	}
	photometric := "MONOCHROME2"
	if comps >= 3 {
		photometric = "RGB"
	}
	var representation uint16
	if signed {
		representation = 1
	}
	return &imagetypes.FrameInfo{
		Width:                     uint16(cols),
		Height:                    uint16(rows),
		BitsAllocated:             uint16(allocated),
		BitsStored:                uint16(precision),
		HighBit:                   uint16(precision - 1),
		SamplesPerPixel:           uint16(comps),
		PixelRepresentation:       representation,
		PlanarConfiguration:       0,
		PhotometricInterpretation: photometric,
	}, nil
}

// packFrame converts samples to frame bytes, little-endian when two bytes
// are allocated per sample.
func packFrame(img *samples.Samples, info *imagetypes.FrameInfo) []byte {
	if info.BitsAllocated <= 8 {
		out := make([]byte, len(img.Data))
		for i, v := range img.Data {
			out[i] = byte(v)
		}
		return out
	}
	out := make([]byte, 2*len(img.Data))
	for i, v := range img.Data {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

// unpackFrame converts frame bytes back to samples.
func unpackFrame(frame []byte, info *imagetypes.FrameInfo) (*samples.Samples, error) {
	rows, cols, comps := int(info.Height), int(info.Width), int(info.SamplesPerPixel)
	img := samples.New(rows, cols, 0)
	if comps > 1 {
		img = samples.New(rows, cols, comps)
	}
	img.Precision = int(info.BitsStored)
	img.Signed = info.PixelRepresentation != 0

	bytesPerSample := 1
	if info.BitsAllocated > 8 {
		bytesPerSample = 2
	}
	if len(frame) < len(img.Data)*bytesPerSample {
		return nil, fmt.Errorf("decoded frame has %d bytes, want %d", len(frame), len(img.Data)*bytesPerSample)
	}
	for i := range img.Data {
		switch {
		case bytesPerSample == 1 && img.Signed:
			img.Data[i] = int32(int8(frame[i]))
		case bytesPerSample == 1:
			img.Data[i] = int32(frame[i])
		case img.Signed:
			img.Data[i] = int32(int16(binary.LittleEndian.Uint16(frame[2*i:])))
		default:
			img.Data[i] = int32(binary.LittleEndian.Uint16(frame[2*i:]))
		}
	}
	return img, nil
}
