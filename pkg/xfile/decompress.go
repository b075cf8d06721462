package xfile

import (
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// The compressed .x sub-formats are proprietary and not reliably knowable
// from the header alone, so recovery is an ordered grid of trial decoders:
// standard containers by magic, raw deflate at several header-skip offsets,
// a minimal LZSS decoder, and finally a search for embedded plaintext.
// Each attempt's output passes through one content-validator gate; the
// first output that validates wins. The whole process is best-effort and
// may legitimately fail.

// maxPayloadSize caps decompressed output so a corrupt stream cannot
// balloon memory.
const maxPayloadSize = 1 << 28

// strategy is one entry in the recovery grid: a named decoder tried at
// each of its skip offsets, gated by an optional magic check.
type strategy struct {
	name   string
	skips  []int
	match  func([]byte) bool
	decode func([]byte) ([]byte, error)
}

var (
	containerSkips = []int{0, 4, 8, 12, 16, 20, 24, 28, 32}
	deflateSkips   = []int{0, 1, 2, 3, 4, 8, 12, 16, 20, 24, 28, 32}
	lzssSkips      = []int{0, 4, 8, 12, 16}
)

// strategies is the recovery order. Earlier entries are cheaper or more
// reliable; the pattern search is the last resort.
var strategies = []strategy{
	{name: "zip", skips: containerSkips, match: isZip, decode: decodeZip},
	{name: "bzip2", skips: containerSkips, match: isBzip2, decode: decodeBzip2},
	{name: "zlib", skips: deflateSkips, match: isZlib, decode: decodeZlib},
	{name: "deflate", skips: deflateSkips, decode: decodeRawDeflate},
	{name: "lzss", skips: lzssSkips, decode: decodeLZSS},
	{name: "scan", skips: []int{0}, decode: extractEmbeddedPayload},
}

// Decompress recovers a text or binary payload from compressed bytes.
// It returns the recovered payload and the name of the winning strategy,
// or ErrDecompressionFailed when the whole grid is exhausted.
func Decompress(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecompressionFailed)
	}

	// A compressed container embedded behind the plaintext preamble is the
	// common case; the skip grids cover both that and bare containers.
	for _, s := range strategies {
		for _, skip := range s.skips {
			if skip >= len(data) {
				continue
			}
			chunk := data[skip:]
			if s.match != nil && !s.match(chunk) {
				continue
			}
			out, err := s.decode(chunk)
			if err != nil || !validPayload(out) {
				continue
			}
			return out, s.name, nil
		}
	}

	return nil, "", ErrDecompressionFailed
}

// validPayload is the single content-validator gate: decompressed output
// is accepted only if it starts with the plaintext magic or mentions a
// template declaration near the start.
func validPayload(out []byte) bool {
	if len(out) == 0 {
		return false
	}
	if bytes.HasPrefix(out, []byte(magic)) {
		return true
	}
	head := out
	if len(head) > 108 {
		head = head[:108]
	}
	return bytes.Contains(head, []byte("template"))
}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04})
}

func isBzip2(data []byte) bool {
	return len(data) >= 4 && data[0] == 'B' && data[1] == 'Z' &&
		data[2] == 'h' && data[3] >= '1' && data[3] <= '9'
}

func isZlib(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x78
}

func decodeZip(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("zip archive has no entries")
	}
	f, err := zr.File[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCapped(f)
}

func decodeBzip2(data []byte) ([]byte, error) {
	return readCapped(bzip2.NewReader(bytes.NewReader(data)))
}

func decodeZlib(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readCapped(zr)
}

func decodeRawDeflate(data []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	return readCapped(fr)
}

// decodeLZSS is a trial decoder for the DirectX-style LZSS variant:
// a control byte precedes each group of eight items, set bits mark literal
// bytes and clear bits mark 16-bit (distance<<4 | length) back-references
// with distance+1 and length+3 bias.
func decodeLZSS(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("lzss: input too small")
	}

	out := make([]byte, 0, len(data)*4)
	pos := 0

	for pos < len(data) {
		control := data[pos]
		pos++

		for bit := 0; bit < 8 && pos < len(data); bit++ {
			if control&(1<<bit) != 0 {
				out = append(out, data[pos])
				pos++
				continue
			}

			if pos+1 >= len(data) {
				break
			}
			pair := uint16(data[pos]) | uint16(data[pos+1])<<8
			pos += 2

			distance := int(pair>>4) + 1
			length := int(pair&0x0F) + 3

			if distance > len(out) {
				continue
			}
			start := len(out) - distance
			for i := 0; i < length; i++ {
				out = append(out, out[start+i%distance])
			}
			if len(out) > maxPayloadSize {
				return nil, fmt.Errorf("lzss: output exceeds size cap")
			}
		}
	}

	return out, nil
}

// extractEmbeddedPayload searches for plaintext .x content stored verbatim
// inside the container.
func extractEmbeddedPayload(data []byte) ([]byte, error) {
	// The magic anywhere past the preamble marks the real payload start.
	if i := bytes.Index(data[min(len(data), 1):], []byte(magic)); i >= 0 {
		return data[i+1:], nil
	}
	if bytes.Contains(data, []byte("template")) {
		return data, nil
	}
	return nil, fmt.Errorf("no embedded payload found")
}

func readCapped(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, maxPayloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxPayloadSize {
		return nil, fmt.Errorf("decompressed output exceeds size cap")
	}
	return out, nil
}
