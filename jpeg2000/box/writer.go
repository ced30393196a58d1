package box

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Write serialises boxes to w. Parsed leaves are written from Raw so an
// unmodified tree reproduces its input. Parsed codestream boxes copy their
// bytes from src.
func Write(w io.Writer, boxes []*Box, src io.ReaderAt) error {
	for _, b := range boxes {
		if err := writeBox(w, b, src); err != nil {
			return err
		}
	}
	return nil
}

func writeBox(w io.Writer, b *Box, src io.ReaderAt) error {
	xl := b.HeaderLength == 16

	if b.IsSuper() && b.Raw == nil {
		var buf bytes.Buffer
		if err := Write(&buf, b.Children, src); err != nil {
			return err
		}
		if err := writeHeader(w, b.Type, int64(buf.Len()), xl); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	}

	if cs, ok := b.Fields.(*ContiguousCodestream); ok && cs.Data == nil {
		if src == nil {
			return fmt.Errorf("box at offset %d: %w", b.Offset, ErrNoSource)
		}
		if err := writeHeader(w, b.Type, cs.DataLength, xl); err != nil {
			return err
		}
		n, err := io.Copy(w, io.NewSectionReader(src, cs.DataOffset, cs.DataLength))
		if err != nil {
			return fmt.Errorf("copy codestream: %w", err)
		}
		if n != cs.DataLength {
			return fmt.Errorf("copy codestream: %w", io.ErrUnexpectedEOF)
		}
		return nil
	}

	payload, err := payloadBytes(b)
	if err != nil {
		return err
	}
	if err := writeHeader(w, b.Type, int64(len(payload)), xl); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func payloadBytes(b *Box) ([]byte, error) {
	if b.Raw != nil {
		return b.Raw, nil
	}
	if b.Fields == nil {
		return nil, nil
	}
	data, err := b.Fields.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode '%s' box: %w", b.Type, err)
	}
	return data, nil
}

// writeHeader writes a box header for a payload of n bytes. The extended
// length field is used when requested or when the box exceeds 4 GiB.
func writeHeader(w io.Writer, t Type, n int64, xl bool) error {
	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[4:8], uint32(t))
	if !xl && n+8 <= math.MaxUint32 {
		binary.BigEndian.PutUint32(hdr[0:4], uint32(n+8))
		_, err := w.Write(hdr[:8])
		return err
	}
	binary.BigEndian.PutUint32(hdr[0:4], 1)
	binary.BigEndian.PutUint64(hdr[8:16], uint64(n+16))
	_, err := w.Write(hdr[:])
	return err
}

// Layout assigns offsets and lengths to a freshly built tree whose first
// box starts at start. It returns the end offset.
func Layout(boxes []*Box, start int64) (int64, error) {
	offset := start
	for _, b := range boxes {
		if b.HeaderLength == 0 {
			b.HeaderLength = 8
		}
		b.Offset = offset
		payloadStart := offset + int64(b.HeaderLength)

		var n int64
		switch {
		case b.IsSuper() && b.Raw == nil:
			end, err := Layout(b.Children, payloadStart)
			if err != nil {
				return 0, err
			}
			n = end - payloadStart
		default:
			if cs, ok := b.Fields.(*ContiguousCodestream); ok {
				if cs.Data != nil {
					cs.DataLength = int64(len(cs.Data))
					cs.DataOffset = payloadStart
				}
				n = cs.DataLength
				break
			}
			payload, err := payloadBytes(b)
			if err != nil {
				return 0, err
			}
			n = int64(len(payload))
		}

		if b.HeaderLength == 8 && n+8 > math.MaxUint32 {
			b.HeaderLength = 16
			return Layout(boxes, start)
		}
		b.Length = n + int64(b.HeaderLength)
		offset += b.Length
	}
	return offset, nil
}
