// Package encoding provides text encoding utilities for legacy scene files.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Windows1252ToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Legacy exporters wrote texture paths and object names in the system code
// page, which in practice is almost always Windows-1252. Returns the input
// as-is if conversion fails.
func Windows1252ToUTF8(data []byte) string {
	decoder := charmap.Windows1252.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// Windows1252StringToUTF8 converts a Windows-1252 encoded string to UTF-8.
func Windows1252StringToUTF8(s string) string {
	return Windows1252ToUTF8([]byte(s))
}

// IsValidUTF8 reports whether data is well-formed UTF-8.
func IsValidUTF8(data []byte) bool {
	return utf8.Valid(data)
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// TrimNullString removes trailing null bytes and converts to string.
func TrimNullString(data []byte) string {
	return string(TrimNullBytes(data))
}

// FixedStringToUTF8 converts a fixed-size Windows-1252 encoded byte array
// to a UTF-8 string, handling null termination.
func FixedStringToUTF8(data []byte) string {
	nullIdx := bytes.IndexByte(data, 0)
	if nullIdx >= 0 {
		data = data[:nullIdx]
	}
	return Windows1252ToUTF8(data)
}
