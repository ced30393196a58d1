package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cocosip/go-jp2k"
	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/codec/codectest"
)

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.jp2")
	if _, err := jp2k.Write(path, codectest.Gradient(16, 16, 3), codec.DefaultConfig(), jp2k.WithCodec(codectest.New())); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    []string
		notWant []string
	}{
		{"default", []string{path}, false, []string{"File:  image.jp2", "Codestream:", "SIZ marker segment"}, []string{"SOT marker segment"}},
		{"no codestream", []string{"-c", "0", path}, false, []string{"Contiguous Codestream Box"}, []string{"Codestream:"}},
		{"all segments", []string{"-c", "2", path}, false, []string{"SOT marker segment", "EOC marker segment"}, nil},
		{"short", []string{"-s", path}, false, []string{"Image Header Box"}, []string{"Size:"}},
		{"invalid detail", []string{"-c", "3", path}, true, nil, nil},
		{"no file", nil, true, nil, nil},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.jp2")}, true, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, s := range tt.want {
				if !strings.Contains(stdout.String(), s) {
					t.Errorf("output missing %q:\n%s", s, stdout.String())
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(stdout.String(), s) {
					t.Errorf("output contains %q:\n%s", s, stdout.String())
				}
			}
		})
	}
}
