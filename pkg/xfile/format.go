// Package xfile ingests legacy DirectX .x scene files: it classifies raw
// bytes as text, binary or compressed, recovers compressed payloads via an
// ordered strategy grid, and parses either grammar into a scene.Document.
package xfile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/modelworks/x2scene/pkg/scene"
)

// The 16-byte preamble: magic, 2-digit major/minor version, format tag,
// float-size tag.
const (
	magic      = "xof "
	headerSize = 16

	tagText   = "txt "
	tagBinary = "bin "
	tagTZip   = "tzip"
	tagBZip   = "bzip"

	floatSize32 = "0032"
	floatSize64 = "0064"
)

// DetectFormat classifies raw bytes without side effects.
//
// Bytes 0-3 must equal "xof " for the file to be recognized at all; if the
// magic is absent, content starting with a known compression magic is
// classified Compressed and anything else Unknown. With the magic present,
// bytes 8-11 select the payload encoding; a file too short to carry the
// full 16-byte header falls back to the Text assumption.
func DetectFormat(data []byte) scene.Format {
	if len(data) < len(magic) || string(data[:4]) != magic {
		if hasCompressionMagic(data) {
			return scene.FormatCompressed
		}
		return scene.FormatUnknown
	}

	if len(data) < headerSize {
		return scene.FormatText
	}

	switch tag := string(data[8:12]); {
	case tag == tagText:
		return scene.FormatText
	case tag == tagBinary:
		return scene.FormatBinary
	case tag == tagTZip, tag == tagBZip, strings.Contains(tag, "lz"):
		return scene.FormatCompressed
	default:
		return scene.FormatText
	}
}

// hasCompressionMagic reports whether data begins with a known compressed
// container signature (zip, bzip2, zlib, or a DirectX LZ variant).
func hasCompressionMagic(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	if bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}) { // zip
		return true
	}
	if bytes.HasPrefix(data, []byte("BZ")) { // bzip2
		return true
	}
	if data[0] == 0x78 { // zlib
		return true
	}
	// DirectX LZ variants share a 0x0003876x little-endian signature.
	sig := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	return sig == 0x00038760 || sig == 0x01038760 || sig == 0x02038760
}

// ParseHeader decodes and validates the 16-byte preamble. A non-conforming
// header is fatal; a non-standard float-size tag is recorded as a warning
// on diag and parsing continues assuming 32-bit floats.
func ParseHeader(data []byte, diag *scene.Diagnostics) (scene.Header, error) {
	var h scene.Header

	if len(data) < headerSize {
		return h, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidHeader, len(data), headerSize)
	}
	if string(data[:4]) != magic {
		return h, fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, string(data[:4]))
	}

	major, minor, ok := parseVersionDigits(data[4:8])
	if !ok {
		return h, fmt.Errorf("%w: non-numeric version %q", ErrInvalidHeader, string(data[4:8]))
	}
	h.MajorVersion = major
	h.MinorVersion = minor
	h.Format = DetectFormat(data)
	h.TicksPerSecond = scene.DefaultTicksPerSecond
	h.FloatSize = 32

	switch string(data[12:16]) {
	case floatSize32:
	case floatSize64:
		h.FloatSize = 64
		diag.AddWarning("64-bit float size declared, values will be narrowed to 32-bit")
	default:
		diag.AddWarningf("non-standard float size tag %q, assuming 32-bit", string(data[12:16]))
	}

	return h, nil
}

// parseVersionDigits decodes the "MMmm" two-digit major/minor pair.
func parseVersionDigits(v []byte) (major, minor int, ok bool) {
	for _, b := range v {
		if b < '0' || b > '9' {
			return 0, 0, false
		}
	}
	major = int(v[0]-'0')*10 + int(v[1]-'0')
	minor = int(v[2]-'0')*10 + int(v[3]-'0')
	return major, minor, true
}
