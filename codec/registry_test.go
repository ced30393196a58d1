package codec_test

import (
	"errors"
	"testing"

	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/samples"
)

type namedCodec string

func (c namedCodec) Name() string { return string(c) }

func (c namedCodec) Decode(codec.DecodeParams) (*samples.Samples, error) {
	return nil, codec.ErrUnsupportedFormat
}

func (c namedCodec) Encode(codec.EncodeParams) ([]byte, error) {
	return nil, codec.ErrUnsupportedFormat
}

func TestCodecRegistry(t *testing.T) {
	r := codec.NewRegistry()
	if _, err := r.Default(); !errors.Is(err, codec.ErrCodecNotFound) {
		t.Errorf("empty registry Default: err = %v, want ErrCodecNotFound", err)
	}

	r.Register(namedCodec("openjpeg"))
	r.Register(namedCodec("kakadu"))

	tests := []struct {
		name      string
		key       string
		wantFound bool
	}{
		{"Get first codec", "openjpeg", true},
		{"Get second codec", "kakadu", true},
		{"Get non-existent codec", "non-existent", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := r.Get(tt.key)
			if tt.wantFound {
				if err != nil {
					t.Fatalf("Get(%q) unexpected error: %v", tt.key, err)
				}
				if c.Name() != tt.key {
					t.Errorf("Get(%q) name = %q", tt.key, c.Name())
				}
				return
			}
			if !errors.Is(err, codec.ErrCodecNotFound) {
				t.Errorf("Get(%q) err = %v, want ErrCodecNotFound", tt.key, err)
			}
		})
	}

	list := r.List()
	if len(list) != 2 || list[0].Name() != "kakadu" || list[1].Name() != "openjpeg" {
		t.Errorf("List = %v", list)
	}

	def, err := r.Default()
	if err != nil || def.Name() != "openjpeg" {
		t.Errorf("Default = %v, %v; want the first registered codec", def, err)
	}
	if err := r.SetDefault("kakadu"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if def, _ := r.Default(); def.Name() != "kakadu" {
		t.Errorf("Default after SetDefault = %q", def.Name())
	}
	if err := r.SetDefault("missing"); !errors.Is(err, codec.ErrCodecNotFound) {
		t.Errorf("SetDefault(missing) err = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*codec.Config)
		wantErr bool
	}{
		{"default", func(*codec.Config) {}, false},
		{"zero value code-block", func(c *codec.Config) { c.CodeBlockSize = [2]int{} }, false},
		{"rectangular code-block", func(c *codec.Config) { c.CodeBlockSize = [2]int{16, 256} }, false},
		{"code-block not a power of two", func(c *codec.Config) { c.CodeBlockSize = [2]int{48, 64} }, true},
		{"code-block too small", func(c *codec.Config) { c.CodeBlockSize = [2]int{2, 64} }, true},
		{"code-block too large", func(c *codec.Config) { c.CodeBlockSize = [2]int{128, 64} }, true},
		{"tile size", func(c *codec.Config) { c.TileSize = [2]int{256, 256} }, false},
		{"negative tile size", func(c *codec.Config) { c.TileSize = [2]int{-1, 256} }, true},
		{"too many resolutions", func(c *codec.Config) { c.NumResolutions = 40 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := codec.DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, codec.ErrInvalidParameter) {
				t.Errorf("error %v does not wrap ErrInvalidParameter", err)
			}
		})
	}
}

func TestCodeBlockExponents(t *testing.T) {
	cfg := codec.Config{CodeBlockSize: [2]int{16, 32}}
	xcb, ycb := cfg.CodeBlockExponents()
	if xcb != 3 || ycb != 2 {
		t.Errorf("exponents = (%d, %d), want (3, 2)", xcb, ycb)
	}
	xcb, ycb = codec.Config{}.CodeBlockExponents()
	if xcb != 4 || ycb != 4 {
		t.Errorf("default exponents = (%d, %d), want (4, 4)", xcb, ycb)
	}
}
