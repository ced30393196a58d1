// Command jp2dump prints the box structure and codestream of JPEG 2000
// files. DICOM files with encapsulated JPEG 2000 pixel data are accepted
// too; the codestream of the pixel data is printed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cocosip/go-dicom/pkg/dicom/element"
	"github.com/cocosip/go-dicom/pkg/dicom/parser"
	"github.com/cocosip/go-dicom/pkg/dicom/tag"

	"github.com/cocosip/go-jp2k"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "jp2dump: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("jp2dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	detail := fs.Int("c", 1, "codestream detail: 0 none, 1 main header, 2 all segments")
	short := fs.Bool("s", false, "only print box headers")
	noXML := fs.Bool("x", false, "suppress XML box text")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: jp2dump [-c 0|1|2] [-s] [-x] <file.jp2|file.j2k|file.dcm>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected one file")
	}
	if *detail < 0 || *detail > 2 {
		return fmt.Errorf("invalid codestream detail %d", *detail)
	}

	path := fs.Arg(0)
	var (
		j   *jp2k.Jp2k
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".dcm") {
		var data []byte
		data, err = dicomCodestream(path)
		if err == nil {
			fmt.Fprintf(stdout, "File:  %s\n", filepath.Base(path))
			j, err = jp2k.OpenBytes(data)
		}
	} else {
		j, err = jp2k.Open(path)
	}
	if err != nil {
		return err
	}

	return j.Dump(stdout, jp2k.PrintOptions{
		Short:      *short,
		XML:        !*noXML,
		Codestream: jp2k.CodestreamDetail(*detail),
	})
}

// dicomCodestream returns the encapsulated pixel data of a DICOM file.
func dicomCodestream(path string) ([]byte, error) {
	result, err := parser.ParseFile(path, parser.WithReadOption(parser.ReadAll))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if ts := result.TransferSyntax; ts == nil || !ts.IsEncapsulated() {
		return nil, fmt.Errorf("%s: pixel data is not encapsulated", path)
	}

	pd, ok := result.Dataset.Get(tag.PixelData)
	if !ok {
		return nil, fmt.Errorf("%s: no PixelData element", path)
	}
	var data []byte
	switch v := pd.(type) {
	case *element.OtherByteFragment:
		for _, frag := range v.Fragments() {
			data = append(data, frag.Data()...)
		}
	case *element.OtherWordFragment:
		for _, frag := range v.Fragments() {
			data = append(data, frag.Data()...)
		}
	default:
		return nil, fmt.Errorf("%s: unexpected pixel data type %T", path, pd)
	}
	return data, nil
}
