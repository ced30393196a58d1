package codestream

import "fmt"

// JPEG 2000 Marker Codes
// Reference: ISO/IEC 15444-1:2019 Table A.1, ISO/IEC 15444-2 Table A.2

// Delimiting markers and marker segments
const (
	// MarkerSOC - Start of codestream
	MarkerSOC uint16 = 0xFF4F

	// MarkerSOT - Start of tile-part
	MarkerSOT uint16 = 0xFF90

	// MarkerSOD - Start of data
	MarkerSOD uint16 = 0xFF93

	// MarkerEOC - End of codestream
	MarkerEOC uint16 = 0xFFD9
)

// Fixed information marker segments
const (
	// MarkerSIZ - Image and tile size
	MarkerSIZ uint16 = 0xFF51

	// MarkerCAP - Extended capabilities (15444-1 2019)
	MarkerCAP uint16 = 0xFF50
)

// Functional marker segments
const (
	// MarkerCOD - Coding style default
	MarkerCOD uint16 = 0xFF52

	// MarkerCOC - Coding style component
	MarkerCOC uint16 = 0xFF53

	// MarkerRGN - Region of interest
	MarkerRGN uint16 = 0xFF5E

	// MarkerQCD - Quantization default
	MarkerQCD uint16 = 0xFF5C

	// MarkerQCC - Quantization component
	MarkerQCC uint16 = 0xFF5D

	// MarkerPOC - Progression order change
	MarkerPOC uint16 = 0xFF5F
)

// Pointer marker segments
const (
	// MarkerTLM - Tile-part lengths
	MarkerTLM uint16 = 0xFF55

	// MarkerPLM - Packet length, main header
	MarkerPLM uint16 = 0xFF57

	// MarkerPLT - Packet length, tile-part header
	MarkerPLT uint16 = 0xFF58

	// MarkerCPF - Corresponding profile
	MarkerCPF uint16 = 0xFF59

	// MarkerPPM - Packed packet headers, main header
	MarkerPPM uint16 = 0xFF60

	// MarkerPPT - Packed packet headers, tile-part header
	MarkerPPT uint16 = 0xFF61
)

// In bit stream markers and marker segments
const (
	// MarkerSOP - Start of packet
	MarkerSOP uint16 = 0xFF91

	// MarkerEPH - End of packet header
	MarkerEPH uint16 = 0xFF92
)

// Informational marker segments
const (
	// MarkerCRG - Component registration
	MarkerCRG uint16 = 0xFF63

	// MarkerCOM - Comment
	MarkerCOM uint16 = 0xFF64

	// Part 2 Multi-component transform markers (ISO/IEC 15444-2)
	MarkerMCT uint16 = 0xFF74 // Multi-component Transform
	MarkerMCC uint16 = 0xFF75 // Multiple Component Collection
	MarkerMCO uint16 = 0xFF77 // MCT ordering
)

// Markers 0xFF30 through 0xFF3F are reserved and carry no parameters.
const (
	reservedFirst uint16 = 0xFF30
	reservedLast  uint16 = 0xFF3F
)

var markerNames = map[uint16]string{
	MarkerSOC: "SOC",
	MarkerSOT: "SOT",
	MarkerSOD: "SOD",
	MarkerEOC: "EOC",
	MarkerSIZ: "SIZ",
	MarkerCAP: "CAP",
	MarkerCOD: "COD",
	MarkerCOC: "COC",
	MarkerRGN: "RGN",
	MarkerQCD: "QCD",
	MarkerQCC: "QCC",
	MarkerPOC: "POC",
	MarkerTLM: "TLM",
	MarkerPLM: "PLM",
	MarkerPLT: "PLT",
	MarkerCPF: "CPF",
	MarkerPPM: "PPM",
	MarkerPPT: "PPT",
	MarkerSOP: "SOP",
	MarkerEPH: "EPH",
	MarkerCRG: "CRG",
	MarkerCOM: "COM",
	MarkerMCT: "MCT",
	MarkerMCC: "MCC",
	MarkerMCO: "MCO",
}

// MarkerName returns the name of a marker code
func MarkerName(marker uint16) string {
	if n, ok := markerNames[marker]; ok {
		return n
	}
	return "UNKNOWN"
}

// MarkerID returns the marker name, or its lower-case hex code when the
// marker is not recognised.
func MarkerID(marker uint16) string {
	if n, ok := markerNames[marker]; ok {
		return n
	}
	return fmt.Sprintf("0x%04x", marker)
}

// IsKnown reports whether the marker is recognised.
func IsKnown(marker uint16) bool {
	_, ok := markerNames[marker]
	return ok
}

// IsReserved reports whether the marker lies in the reserved parameterless range.
func IsReserved(marker uint16) bool {
	return marker >= reservedFirst && marker <= reservedLast
}

// HasLength returns true if the marker has a length field
func HasLength(marker uint16) bool {
	switch marker {
	case MarkerSOC, MarkerSOD, MarkerEOC, MarkerEPH:
		return false
	}
	return !IsReserved(marker)
}
