package codestream

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes a human readable description of the codestream segments,
// each line prefixed by indent.
func Fprint(w io.Writer, cs *Codestream, indent string) error {
	if _, err := fmt.Fprintf(w, "%sCodestream:\n", indent); err != nil {
		return err
	}
	for _, seg := range cs.Segments {
		if _, err := fmt.Fprintf(w, "%s    %s\n", indent, seg); err != nil {
			return err
		}
		for _, line := range describe(seg) {
			if _, err := fmt.Fprintf(w, "%s        %s\n", indent, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// String returns the segment header line.
func (s *Segment) String() string {
	if !HasLength(s.Marker) {
		return fmt.Sprintf("%s marker segment @ (%d, 0)", s.ID(), s.Offset)
	}
	return fmt.Sprintf("%s marker segment @ (%d, %d)", s.ID(), s.Offset, s.Length)
}

func joinInts[T ~int | ~uint8 | ~uint16 | ~uint32](v []T) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}

func describeCodingStyle(c *CodingStyle) []string {
	w, h := c.CodeBlockSize()
	transform := "9-7 irreversible"
	if c.Transformation == 1 {
		transform = "5-3 reversible"
	}
	lines := []string{
		fmt.Sprintf("Levels:  %d", c.NumberOfDecompositionLevels),
		fmt.Sprintf("Code block height, width:  (%d x %d)", h, w),
		fmt.Sprintf("Code block style:  0x%02x", c.CodeBlockStyle),
		fmt.Sprintf("Wavelet transform:  %s", transform),
	}
	if len(c.PrecinctSizes) > 0 {
		sizes := make([]string, len(c.PrecinctSizes))
		for i, p := range c.PrecinctSizes {
			sizes[i] = fmt.Sprintf("(%d, %d)", 1<<p.PPy, 1<<p.PPx)
		}
		lines = append(lines, "Precinct size:  "+strings.Join(sizes, ", "))
	}
	return lines
}

func describeQuantization(q *Quantization) []string {
	style := "scalar expounded"
	switch q.Style() {
	case QuantizationNone:
		style = "no quantization"
	case QuantizationScalarDerived:
		style = "scalar implicit"
	}
	return []string{
		fmt.Sprintf("Quantization style:  %s, %d guard bits", style, q.GuardBits()),
		fmt.Sprintf("Step size:  [%s]", stepSizes(q)),
	}
}

func stepSizes(q *Quantization) string {
	exps, mants := q.Exponents(), q.Mantissas()
	parts := make([]string, len(exps))
	for i := range exps {
		parts[i] = fmt.Sprintf("(%d, %d)", mants[i], exps[i])
	}
	return strings.Join(parts, ", ")
}

func describe(seg *Segment) []string {
	switch b := seg.Body.(type) {
	case *SIZSegment:
		w, h := b.ImageSize()
		tx, ty := b.NumTiles()
		lines := []string{
			fmt.Sprintf("Profile:  0x%04x", b.Rsiz),
			fmt.Sprintf("Reference Grid Height, Width:  (%d x %d)", b.Ysiz, b.Xsiz),
			fmt.Sprintf("Vertical, Horizontal Reference Grid Offset:  (%d, %d)", b.YOsiz, b.XOsiz),
			fmt.Sprintf("Image Height, Width:  (%d x %d)", h, w),
			fmt.Sprintf("Reference Tile Height, Width:  (%d x %d)", b.YTsiz, b.XTsiz),
			fmt.Sprintf("Vertical, Horizontal Reference Tile Offset:  (%d, %d)", b.YTOsiz, b.XTOsiz),
			fmt.Sprintf("Tiles:  (%d x %d)", ty, tx),
		}
		for i := range b.Components {
			c := &b.Components[i]
			lines = append(lines, fmt.Sprintf("Component %d:  %d bits, signed %t, subsampling (%d, %d)",
				i, c.BitDepth(), c.IsSigned(), c.YRsiz, c.XRsiz))
		}
		return lines
	case *CODSegment:
		lines := []string{
			fmt.Sprintf("Coding style:  0x%02x (precincts %t, SOP %t, EPH %t)", b.Scod, b.Scod&0x01 != 0, b.SOPEnabled(), b.EPHEnabled()),
			fmt.Sprintf("Progression order:  %s", ProgressionName(b.ProgressionOrder)),
			fmt.Sprintf("Quality layers:  %d", b.NumberOfLayers),
			fmt.Sprintf("Multiple component transform:  %t", b.MultipleComponentTransform != 0),
		}
		return append(lines, describeCodingStyle(&b.CodingStyle)...)
	case *COCSegment:
		return append([]string{fmt.Sprintf("Component:  %d", b.Component)}, describeCodingStyle(&b.CodingStyle)...)
	case *QCDSegment:
		return describeQuantization(&b.Quantization)
	case *QCCSegment:
		return append([]string{fmt.Sprintf("Component:  %d", b.Component)}, describeQuantization(&b.Quantization)...)
	case *RGNSegment:
		return []string{fmt.Sprintf("Component:  %d", b.Crgn), fmt.Sprintf("Style:  %d", b.Srgn), fmt.Sprintf("Shift:  %d", b.SPrgn)}
	case *POCSegment:
		lines := make([]string, len(b.Entries))
		for i, e := range b.Entries {
			lines[i] = fmt.Sprintf("Change %d:  resolutions %d-%d, components %d-%d, layers to %d, %s",
				i, e.RSpoc, e.REpoc, e.CSpoc, e.CEpoc, e.LYEpoc, ProgressionName(e.Ppoc))
		}
		return lines
	case *TLMSegment:
		return []string{fmt.Sprintf("Index:  %d", b.Ztlm), fmt.Sprintf("Tile-part lengths:  [%s]", joinInts(b.Lengths))}
	case *PLTSegment:
		return []string{fmt.Sprintf("Index:  %d", b.Zplt), fmt.Sprintf("Packet lengths:  %d", len(b.Lengths))}
	case *PLMSegment:
		return []string{fmt.Sprintf("Index:  %d", b.Zplm), fmt.Sprintf("Packet lengths:  %d", len(b.Lengths))}
	case *PPMSegment:
		return []string{fmt.Sprintf("Index:  %d", b.Zppm), fmt.Sprintf("Packet headers:  %d bytes", len(b.Data))}
	case *PPTSegment:
		return []string{fmt.Sprintf("Index:  %d", b.Zppt), fmt.Sprintf("Packet headers:  %d bytes", len(b.Data))}
	case *CRGSegment:
		return []string{fmt.Sprintf("Vertical:  [%s]", joinInts(b.Ycrg)), fmt.Sprintf("Horizontal:  [%s]", joinInts(b.Xcrg))}
	case *COMSegment:
		if b.Rcom == RcomLatin {
			return []string{"\"" + b.Text() + "\""}
		}
		return []string{fmt.Sprintf("Binary comment:  %d bytes", len(b.Data))}
	case *SOTSegment:
		return []string{
			fmt.Sprintf("Tile part index:  %d", b.Isot),
			fmt.Sprintf("Tile part length:  %d", b.Psot),
			fmt.Sprintf("Tile part instance:  %d", b.TPsot),
			fmt.Sprintf("Number of tile parts:  %d", b.TNsot),
		}
	case *SOPSegment:
		return []string{fmt.Sprintf("Nsop:  %d", b.Nsop)}
	case *MCTSegment:
		return []string{fmt.Sprintf("Index:  %d", b.Index), fmt.Sprintf("Array type:  %d", b.ArrayType), fmt.Sprintf("Element type:  %d", b.ElementType)}
	case *MCCSegment:
		return []string{
			fmt.Sprintf("Index:  %d", b.Index),
			fmt.Sprintf("Input components:  [%s]", joinInts(b.ComponentIDs)),
			fmt.Sprintf("Output components:  [%s]", joinInts(b.OutputComponentIDs)),
		}
	case *MCOSegment:
		return []string{fmt.Sprintf("Stages:  [%s]", joinInts(b.StageIndices))}
	case *RawSegment:
		return []string{fmt.Sprintf("Payload:  %d bytes", len(b.Data))}
	}
	return nil
}
