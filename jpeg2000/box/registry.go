package box

// decodeFunc decodes a leaf payload. warn reports invalid but parseable
// field values; a returned error means the payload could not be decoded.
type decodeFunc func(data []byte, warn func(format string, args ...any)) (Payload, error)

// Entry describes a registered box type.
type Entry struct {
	Name      string
	Container bool
	decode    decodeFunc
}

// Decodable reports whether the entry has a payload decoder.
func (e Entry) Decodable() bool {
	return e.decode != nil
}

var registry = map[Type]Entry{
	TypeSignature:          {Name: "JPEG 2000 Signature", decode: decodeSignature},
	TypeFileType:           {Name: "File Type", decode: decodeFileType},
	TypeReaderRequirements: {Name: "Reader Requirements", decode: decodeReaderRequirements},

	TypeHeader:           {Name: "JP2 Header", Container: true},
	TypeImageHeader:      {Name: "Image Header", decode: decodeImageHeader},
	TypeBitsPerComponent: {Name: "Bits Per Component", decode: decodeBitsPerComponent},
	TypeColourSpec:       {Name: "Colour Specification", decode: decodeColourSpecification},
	TypePalette:          {Name: "Palette", decode: decodePalette},
	TypeComponentMap:     {Name: "Component Mapping", decode: decodeComponentMapping},
	TypeChannelDef:       {Name: "Channel Definition", decode: decodeChannelDefinition},
	TypeResolution:       {Name: "Resolution", Container: true},
	TypeCaptureRes:       {Name: "Capture Resolution", decode: decodeResolution(TypeCaptureRes)},
	TypeDisplayRes:       {Name: "Display Resolution", decode: decodeResolution(TypeDisplayRes)},

	TypeCodestream:       {Name: "Contiguous Codestream"},
	TypeCodestreamHeader: {Name: "Codestream Header", Container: true},
	TypeLayerHeader:      {Name: "Compositing Layer Header", Container: true},
	TypeColourGroup:      {Name: "Colour Group", Container: true},
	TypeFragmentTable:    {Name: "Fragment Table", Container: true},
	TypeFragmentList:     {Name: "Fragment List", decode: decodeFragmentList},
	TypeComposition:      {Name: "Composition", Container: true},
	TypeDesiredRepro:     {Name: "Desired Reproductions", Container: true},
	TypeDataReference:    {Name: "Data Reference"},

	TypeAssociation: {Name: "Association", Container: true},
	TypeLabel:       {Name: "Label", decode: decodeLabel},
	TypeNumberList:  {Name: "Number List", decode: decodeNumberList},
	TypeXML:         {Name: "XML", decode: decodeXML},
	TypeUUID:        {Name: "UUID", decode: decodeUUIDBox},
	TypeUUIDInfo:    {Name: "UUIDInfo", Container: true},
	TypeUUIDList:    {Name: "UUID List", decode: decodeUUIDList},
	TypeURL:         {Name: "Data Entry URL", decode: decodeDataEntryURL},
	TypeIPR:         {Name: "Intellectual Property"},
	TypeFree:        {Name: "Free"},
}

// Lookup returns the registry entry for t.
func Lookup(t Type) (Entry, bool) {
	e, ok := registry[t]
	return e, ok
}

// IsContainer reports whether t is a super-box type.
func IsContainer(t Type) bool {
	return registry[t].Container
}

// LongName returns the descriptive name of t, or "Unknown" for
// unregistered codes.
func LongName(t Type) string {
	if e, ok := registry[t]; ok {
		return e.Name
	}
	return "Unknown"
}
