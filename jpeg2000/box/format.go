package box

import (
	"fmt"
	"io"
	"strings"
)

// FormatOptions controls Fprint.
type FormatOptions struct {
	Short bool // headers only
	XML   bool // include XML box text

	// Codestream, when set, is called after the header line of each
	// codestream box to print its contents.
	Codestream func(w io.Writer, b *Box, indent string) error
}

// Fprint writes a human readable description of the box tree.
func Fprint(w io.Writer, boxes []*Box, opts FormatOptions) error {
	return Walk(boxes, func(b *Box, depth int) error {
		indent := strings.Repeat("    ", depth)
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, b); err != nil {
			return err
		}
		if opts.Short {
			return nil
		}
		if b.Type == TypeCodestream && opts.Codestream != nil {
			return opts.Codestream(w, b, indent+"    ")
		}
		for _, line := range describe(b, opts) {
			if _, err := fmt.Fprintf(w, "%s    %s\n", indent, line); err != nil {
				return err
			}
		}
		return nil
	})
}

func describe(b *Box, opts FormatOptions) []string {
	switch f := b.Fields.(type) {
	case nil:
		if b.IsSuper() {
			return nil
		}
		if b.Type == TypeXML {
			return []string{"XML:  None"}
		}
		return []string{fmt.Sprintf("Payload:  %d bytes", len(b.Raw))}
	case *SignatureBox:
		return []string{fmt.Sprintf("Signature:  %02x%02x%02x%02x", f.Data[0], f.Data[1], f.Data[2], f.Data[3])}
	case *FileType:
		compat := make([]string, len(f.Compatibility))
		for i, c := range f.Compatibility {
			compat[i] = strings.TrimSpace(c.String())
		}
		return []string{
			fmt.Sprintf("Brand:  %s", f.Brand),
			fmt.Sprintf("Compatibility:  [%s]", strings.Join(compat, ", ")),
		}
	case *ImageHeader:
		return []string{
			fmt.Sprintf("Size:  [%d %d %d]", f.Height, f.Width, f.NumComponents),
			fmt.Sprintf("Bitdepth:  %d", f.BitDepth()),
			fmt.Sprintf("Signed:  %t", f.Signed()),
			fmt.Sprintf("Compression:  %d", f.Compression),
			fmt.Sprintf("Colorspace Unknown:  %t", f.ColourspaceUnknown != 0),
		}
	case *ColourSpecification:
		lines := []string{
			fmt.Sprintf("Method:  %s", f.Method),
			fmt.Sprintf("Precedence:  %d", f.Precedence),
		}
		if f.Approximation != 0 {
			lines = append(lines, fmt.Sprintf("Approximation:  %d", f.Approximation))
		}
		switch f.Method {
		case MethodEnumerated:
			lines = append(lines, fmt.Sprintf("Colorspace:  %s", f.ColourSpace))
		case MethodRestrictedICC, MethodAnyICC:
			lines = append(lines, fmt.Sprintf("ICC Profile:  %d bytes", len(f.ICCProfile)))
		}
		return lines
	case *Palette:
		return []string{fmt.Sprintf("Size:  (%d x %d)", len(f.Table), len(f.BPS))}
	case *ComponentMapping:
		lines := make([]string, len(f.Entries))
		for i, e := range f.Entries {
			if e.MappingType == 0 {
				lines[i] = fmt.Sprintf("Component %d ==> %d", e.Component, i)
			} else {
				lines[i] = fmt.Sprintf("Component %d ==> palette column %d", e.Component, e.PaletteColumn)
			}
		}
		return lines
	case *ChannelDefinition:
		lines := make([]string, len(f.Channels))
		for i, ch := range f.Channels {
			lines[i] = fmt.Sprintf("Channel %d (%s) ==> (%d)", ch.Index, ch.Type, ch.Association)
		}
		return lines
	case *Resolution:
		return []string{
			fmt.Sprintf("VR:  %g", f.Vertical()),
			fmt.Sprintf("HR:  %g", f.Horizontal()),
		}
	case *ReaderRequirements:
		lines := []string{
			fmt.Sprintf("Fully Understands Aspect Mask:  0x%x", f.FullyUnderstand),
			fmt.Sprintf("Display Completely Mask:  0x%x", f.DisplayCompletely),
			"Standard Features and Masks:",
		}
		for _, s := range f.Standard {
			lines = append(lines, fmt.Sprintf("    Feature %03d:  0x%x", s.Flag, s.Mask))
		}
		if len(f.Vendor) > 0 {
			lines = append(lines, "Vendor Features:")
			for _, v := range f.Vendor {
				lines = append(lines, fmt.Sprintf("    UUID %s", v.ID))
			}
		}
		return lines
	case *UUIDList:
		lines := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			lines[i] = fmt.Sprintf("UUID[%d]:  %s", i, id)
		}
		return lines
	case *DataEntryURL:
		return []string{
			fmt.Sprintf("Version:  %d", f.Version),
			fmt.Sprintf("Flag:  %d %d %d", f.Flags[0], f.Flags[1], f.Flags[2]),
			fmt.Sprintf("URL:  %q", f.URL),
		}
	case *Label:
		return []string{fmt.Sprintf("Label:  %s", f.Text)}
	case *XML:
		if !opts.XML {
			return nil
		}
		return strings.Split(strings.TrimRight(f.Text, "\n"), "\n")
	case *UUIDBox:
		return []string{
			fmt.Sprintf("UUID:  %s", f.ID),
			fmt.Sprintf("UUID Data:  %d bytes", len(f.Data)),
		}
	case *NumberList:
		lines := make([]string, len(f.Numbers))
		for i, n := range f.Numbers {
			lines[i] = fmt.Sprintf("Association[%d]:  %s", i, describeAssociation(n))
		}
		return lines
	case *FragmentList:
		lines := make([]string, len(f.Fragments))
		for i, fr := range f.Fragments {
			lines[i] = fmt.Sprintf("Offset %d:  %d (length %d, reference %d)", i, fr.Offset, fr.Length, fr.DataRef)
		}
		return lines
	case *ContiguousCodestream:
		return []string{fmt.Sprintf("Codestream:  %d bytes at %d", f.DataLength, f.DataOffset)}
	case *BitsPerComponent:
		return []string{fmt.Sprintf("Bits per component:  %v", f.BPC)}
	}
	return nil
}

func describeAssociation(n uint32) string {
	switch {
	case n == 0:
		return "the rendered result"
	case n>>24 == 1:
		return fmt.Sprintf("codestream %d", n&0x00FFFFFF)
	case n>>24 == 2:
		return fmt.Sprintf("compositing layer %d", n&0x00FFFFFF)
	}
	return fmt.Sprintf("unrecognized 0x%08x", n)
}
