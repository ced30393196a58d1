package box

import "encoding/binary"

// Type is a four character box type code.
type Type uint32

// Box type codes (ISO/IEC 15444-1 Annex I, ISO/IEC 15444-2 Annex M)
const (
	TypeSignature          Type = 0x6A502020 // "jP  "
	TypeFileType           Type = 0x66747970 // "ftyp"
	TypeReaderRequirements Type = 0x72726571 // "rreq"

	TypeHeader           Type = 0x6A703268 // "jp2h"
	TypeImageHeader      Type = 0x69686472 // "ihdr"
	TypeBitsPerComponent Type = 0x62706363 // "bpcc"
	TypeColourSpec       Type = 0x636F6C72 // "colr"
	TypePalette          Type = 0x70636C72 // "pclr"
	TypeComponentMap     Type = 0x636D6170 // "cmap"
	TypeChannelDef       Type = 0x63646566 // "cdef"
	TypeResolution       Type = 0x72657320 // "res "
	TypeCaptureRes       Type = 0x72657363 // "resc"
	TypeDisplayRes       Type = 0x72657364 // "resd"

	TypeCodestream       Type = 0x6A703263 // "jp2c"
	TypeCodestreamHeader Type = 0x6A706368 // "jpch"
	TypeLayerHeader      Type = 0x6A706C68 // "jplh"
	TypeColourGroup      Type = 0x63677270 // "cgrp"
	TypeFragmentTable    Type = 0x6674626C // "ftbl"
	TypeFragmentList     Type = 0x666C7374 // "flst"
	TypeComposition      Type = 0x636F6D70 // "comp"
	TypeDesiredRepro     Type = 0x64726570 // "drep"
	TypeDataReference    Type = 0x6474626C // "dtbl"

	TypeAssociation Type = 0x61736F63 // "asoc"
	TypeLabel       Type = 0x6C626C20 // "lbl "
	TypeNumberList  Type = 0x6E6C7374 // "nlst"
	TypeXML         Type = 0x786D6C20 // "xml "
	TypeUUID        Type = 0x75756964 // "uuid"
	TypeUUIDInfo    Type = 0x75696E66 // "uinf"
	TypeUUIDList    Type = 0x756C7374 // "ulst"
	TypeURL         Type = 0x75726C20 // "url "
	TypeIPR         Type = 0x6A703269 // "jp2i"
	TypeFree        Type = 0x66726565 // "free"
)

// Signature is the payload of a valid "jP  " box.
var Signature = [4]byte{0x0D, 0x0A, 0x87, 0x0A}

// TypeOf builds a Type from its four character code.
func TypeOf(code string) Type {
	var b [4]byte
	copy(b[:], code)
	for i := len(code); i < 4; i++ {
		b[i] = ' '
	}
	return Type(binary.BigEndian.Uint32(b[:]))
}

// String returns the four character code.
func (t Type) String() string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(t))
	return string(b[:])
}

// ColourMethod is the colr box specification method.
type ColourMethod uint8

const (
	MethodEnumerated    ColourMethod = 1
	MethodRestrictedICC ColourMethod = 2
	MethodAnyICC        ColourMethod = 3
	MethodVendor        ColourMethod = 4
)

func (m ColourMethod) String() string {
	switch m {
	case MethodEnumerated:
		return "enumerated colorspace"
	case MethodRestrictedICC:
		return "restricted ICC profile"
	case MethodAnyICC:
		return "any ICC profile"
	case MethodVendor:
		return "vendor colour method"
	}
	return "unknown method"
}

// ColourSpace is an enumerated colour space (ITU-T T.800 Table I.10, T.801 Table M.25).
type ColourSpace uint32

const (
	ColourBiLevel1  ColourSpace = 0
	ColourYCbCr1    ColourSpace = 1
	ColourYCbCr2    ColourSpace = 3
	ColourYCbCr3    ColourSpace = 4
	ColourPhotoYCC  ColourSpace = 9
	ColourCMY       ColourSpace = 11
	ColourCMYK      ColourSpace = 12
	ColourYCCK      ColourSpace = 13
	ColourCIELab    ColourSpace = 14
	ColourBiLevel2  ColourSpace = 15
	ColourSRGB      ColourSpace = 16
	ColourGreyscale ColourSpace = 17
	ColourSYCC      ColourSpace = 18
	ColourCIEJab    ColourSpace = 19
	ColourESRGB     ColourSpace = 20
	ColourROMM      ColourSpace = 21
	ColourYPbPr60   ColourSpace = 22
	ColourYPbPr50   ColourSpace = 23
	ColourESYCC     ColourSpace = 24
)

var colourSpaceNames = map[ColourSpace]string{
	ColourBiLevel1:  "bi-level",
	ColourYCbCr1:    "YCbCr(1)",
	ColourYCbCr2:    "YCbCr(2)",
	ColourYCbCr3:    "YCbCr(3)",
	ColourPhotoYCC:  "PhotoYCC",
	ColourCMY:       "CMY",
	ColourCMYK:      "CMYK",
	ColourYCCK:      "YCCK",
	ColourCIELab:    "CIELab",
	ColourBiLevel2:  "bi-level(2)",
	ColourSRGB:      "sRGB",
	ColourGreyscale: "greyscale",
	ColourSYCC:      "sYCC",
	ColourCIEJab:    "CIEJab",
	ColourESRGB:     "e-sRGB",
	ColourROMM:      "ROMM-RGB",
	ColourYPbPr60:   "YPbPr(1125/60)",
	ColourYPbPr50:   "YPbPr(1250/50)",
	ColourESYCC:     "e-sYCC",
}

func (c ColourSpace) String() string {
	if n, ok := colourSpaceNames[c]; ok {
		return n
	}
	return "unrecognized colorspace"
}

// ChannelType is the cdef channel type.
type ChannelType uint16

const (
	ChannelColour        ChannelType = 0
	ChannelOpacity       ChannelType = 1
	ChannelPremultiplied ChannelType = 2
	ChannelUnspecified   ChannelType = 0xFFFF
)

func (c ChannelType) String() string {
	switch c {
	case ChannelColour:
		return "color"
	case ChannelOpacity:
		return "opacity"
	case ChannelPremultiplied:
		return "pre-multiplied opacity"
	case ChannelUnspecified:
		return "unspecified"
	}
	return "invalid"
}
