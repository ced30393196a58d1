package jp2k

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/cocosip/go-jp2k/jpeg2000/box"
	"github.com/cocosip/go-jp2k/jpeg2000/codestream"
)

// Dump writes a text description of the file: its boxes and, as selected
// by opts, the codestream segments.
func (j *Jp2k) Dump(w io.Writer, opts PrintOptions) error {
	if j.path != "" {
		if _, err := fmt.Fprintf(w, "File:  %s\n", filepath.Base(j.path)); err != nil {
			return err
		}
	}

	printCodestream := func(w io.Writer, indent string) error {
		if opts.Codestream == CodestreamNone {
			return nil
		}
		cs, err := j.Codestream(opts.Codestream == CodestreamHeader)
		if err != nil {
			return err
		}
		return codestream.Fprint(w, cs, indent)
	}

	if len(j.boxes) == 0 {
		if opts.Short {
			return nil
		}
		return printCodestream(w, "")
	}
	return box.Fprint(w, j.boxes, box.FormatOptions{
		Short: opts.Short,
		XML:   opts.XML,
		Codestream: func(w io.Writer, _ *box.Box, indent string) error {
			return printCodestream(w, indent)
		},
	})
}
