package jp2k

import (
	log "github.com/sirupsen/logrus"

	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/jpeg2000/diag"
	"github.com/cocosip/go-jp2k/jpeg2000/region"
)

// CodestreamMode selects when Open parses the codestream.
type CodestreamMode int

const (
	// CodestreamLazy defers parsing until the codestream is first needed.
	CodestreamLazy CodestreamMode = iota
	// CodestreamEagerHeader parses the main header at open.
	CodestreamEagerHeader
	// CodestreamEagerFull parses every tile-part at open.
	CodestreamEagerFull
)

// ParseOptions controls parsing at open.
type ParseOptions struct {
	Codestream CodestreamMode
}

type options struct {
	codec     codec.Codec
	codecName string
	handler   diag.Handler
	logger    *log.Logger
	parse     ParseOptions
}

// Option configures Open, OpenBytes and Write.
type Option func(*options)

// WithCodec sets the codec used to read and write samples.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithCodecName selects a registered codec by name. Open fails with
// codec.ErrCodecNotFound when no codec has that name.
func WithCodecName(name string) Option {
	return func(o *options) { o.codecName = name }
}

// WithDiagnostics sends structural warnings to h instead of the logger.
func WithDiagnostics(h diag.Handler) Option {
	return func(o *options) { o.handler = h }
}

// WithLogger logs structural warnings to l. Combined with WithDiagnostics,
// warnings go to both.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithParseOptions sets the parse options.
func WithParseOptions(p ParseOptions) Option {
	return func(o *options) { o.parse = p }
}

func newOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.codec == nil && o.codecName != "" {
		c, err := codec.Get(o.codecName)
		if err != nil {
			return nil, err
		}
		o.codec = c
	}
	return o, nil
}

func (o *options) diagnostics() diag.Handler {
	switch {
	case o.handler != nil && o.logger != nil:
		return diag.Tee(o.handler, diag.Logger(o.logger))
	case o.handler != nil:
		return o.handler
	default:
		return diag.Logger(o.logger)
	}
}

func (o *options) resolveCodec() (codec.Codec, error) {
	if o.codec != nil {
		return o.codec, nil
	}
	return codec.Default()
}

type readRequest struct {
	region.Request
	layer    int
	layerSet bool
}

// ReadOption selects what Read returns.
type ReadOption func(*readRequest)

// Reduce reads at resolution reduction r. -1 selects the lowest resolution.
func Reduce(r int) ReadOption {
	return func(q *readRequest) { q.Reduce = r }
}

// Tile reads a single tile.
func Tile(t int) ReadOption {
	return func(q *readRequest) { q.Tile = t }
}

// Area reads a full resolution area. Areas extending past the image are
// clipped.
func Area(a region.Area) ReadOption {
	return func(q *readRequest) { q.Area = &a }
}

// Step reads every rowStep-th row and colStep-th column. It cannot be
// combined with Reduce.
func Step(rowStep, colStep int) ReadOption {
	return func(q *readRequest) { q.RowStep, q.ColStep = rowStep, colStep }
}

// Layer decodes quality layers 0 through n. Codecs that always decode every
// layer fail with ErrDecode unless n names the last layer.
func Layer(n int) ReadOption {
	return func(q *readRequest) { q.layer, q.layerSet = n, true }
}

// WriteConfig holds the encoder settings for Write. Colorspace is "rgb",
// "gray" or "grey", or empty to choose from the component count.
type WriteConfig = codec.Config

// CodestreamDetail selects how much of the codestream Dump prints.
type CodestreamDetail int

const (
	CodestreamNone CodestreamDetail = iota
	CodestreamHeader
	CodestreamFull
)

// PrintOptions controls Dump.
type PrintOptions struct {
	Short      bool // box headers only
	XML        bool // include XML box text
	Codestream CodestreamDetail
}

// DefaultPrintOptions prints XML and the codestream main header.
func DefaultPrintOptions() PrintOptions {
	return PrintOptions{XML: true, Codestream: CodestreamHeader}
}
