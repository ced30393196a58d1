package dicomcodec

import (
	dcodec "github.com/cocosip/go-dicom/pkg/imaging/codec"

	"github.com/cocosip/go-jp2k/codec"
)

// Parameter names understood by the go-dicom JPEG 2000 codecs.
const (
	ParamNumLevels       = "numLevels"
	ParamCodeBlockWidth  = "codeBlockWidth"
	ParamCodeBlockHeight = "codeBlockHeight"
	ParamTileWidth       = "tileWidth"
	ParamTileHeight      = "tileHeight"
)

var _ dcodec.Parameters = (*Parameters)(nil)

// Parameters carries encoder settings to a go-dicom codec
type Parameters struct {
	NumLevels       int
	CodeBlockWidth  int
	CodeBlockHeight int
	TileWidth       int // 0 for a single tile
	TileHeight      int

	// anything the codec defines that has no field here
	params map[string]interface{}
}

// NewParameters creates Parameters from a writer config
func NewParameters(cfg codec.Config) *Parameters {
	rows, cols := cfg.CodeBlockSize[0], cfg.CodeBlockSize[1]
	if rows == 0 {
		rows, cols = 64, 64
	}
	return &Parameters{
		NumLevels:       cfg.Levels(),
		CodeBlockWidth:  cols,
		CodeBlockHeight: rows,
		TileWidth:       cfg.TileSize[1],
		TileHeight:      cfg.TileSize[0],
		params:          make(map[string]interface{}),
	}
}

// GetParameter retrieves a parameter by name (implements codec.Parameters)
func (p *Parameters) GetParameter(name string) interface{} {
	switch name {
	case ParamNumLevels:
		return p.NumLevels
	case ParamCodeBlockWidth:
		return p.CodeBlockWidth
	case ParamCodeBlockHeight:
		return p.CodeBlockHeight
	case ParamTileWidth:
		return p.TileWidth
	case ParamTileHeight:
		return p.TileHeight
	default:
		return p.params[name]
	}
}

// SetParameter sets a parameter value (implements codec.Parameters)
func (p *Parameters) SetParameter(name string, value interface{}) {
	v, isInt := value.(int)
	switch {
	case name == ParamNumLevels && isInt:
		p.NumLevels = v
	case name == ParamCodeBlockWidth && isInt:
		p.CodeBlockWidth = v
	case name == ParamCodeBlockHeight && isInt:
		p.CodeBlockHeight = v
	case name == ParamTileWidth && isInt:
		p.TileWidth = v
	case name == ParamTileHeight && isInt:
		p.TileHeight = v
	default:
		if p.params == nil {
			p.params = make(map[string]interface{})
		}
		p.params[name] = value
	}
}

// Validate checks the parameters against the writer limits
func (p *Parameters) Validate() error {
	cfg := codec.Config{
		CodeBlockSize:  [2]int{p.CodeBlockHeight, p.CodeBlockWidth},
		TileSize:       [2]int{p.TileHeight, p.TileWidth},
		NumResolutions: p.NumLevels + 1,
	}
	return cfg.Validate()
}

// apply copies the parameters onto the codec's own parameter set.
func (p *Parameters) apply(dst dcodec.Parameters) {
	for _, name := range []string{ParamNumLevels, ParamCodeBlockWidth, ParamCodeBlockHeight, ParamTileWidth, ParamTileHeight} {
		dst.SetParameter(name, p.GetParameter(name))
	}
	for name, v := range p.params {
		dst.SetParameter(name, v)
	}
}
