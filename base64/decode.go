// Package base64 implements a fast, non-validating base64 decoder for
// embedded glTF buffer payloads. Input is treated as trusted once past the
// loader's structural checks: non-alphabet characters or interior padding
// produce unspecified output rather than an error.
package base64

import (
	"github.com/klauspost/cpuid/v2"
)

// The block decoders follow the SWAR variant of the technique described at
// http://0x80.pl/notesen/2016-01-17-sse-base64-decoding.html: characters map
// to their 6-bit values through a shift table indexed by the high nibble,
// and each 4-character group merges into a 24-bit word.

// shiftLUT maps the high nibble of an input character to the offset that
// turns it into its 6-bit alphabet value. '/' shares a nibble with other
// punctuation and gets its own offset below.
var shiftLUT = [16]int8{0, 0, 19, 4, -65, -65, -71, -71}

func sixBits(c byte) byte {
	shift := shiftLUT[c>>4]
	if c == '/' {
		shift = 16
	}
	return c + byte(shift)
}

// padding counts trailing '=' characters, at most two.
func padding(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && i >= len(s)-2; i-- {
		if s[i] != '=' {
			break
		}
		n++
	}
	return n
}

// decodeBlocks zero-pads the input up to a multiple of blockSize, decodes
// every 4-character group into 3 bytes, and truncates the result to the
// real decoded length. Garbage produced by the zero padding and by '='
// characters lands only in the truncated tail.
func decodeBlocks(encoded string, blockSize int) []byte {
	pad := padding(encoded)
	aligned := (len(encoded) + blockSize - 1) / blockSize * blockSize

	in := make([]byte, aligned)
	copy(in, encoded)

	out := make([]byte, aligned/4*3)
	o := 0
	for pos := 0; pos < aligned; pos += blockSize {
		for g := pos; g < pos+blockSize; g += 4 {
			word := uint32(sixBits(in[g]))<<18 |
				uint32(sixBits(in[g+1]))<<12 |
				uint32(sixBits(in[g+2]))<<6 |
				uint32(sixBits(in[g+3]))
			out[o] = byte(word >> 16)
			out[o+1] = byte(word >> 8)
			out[o+2] = byte(word)
			o += 3
		}
	}

	return out[:(len(encoded)-pad)*3/4]
}

// DecodeBlock32 decodes in 32-byte blocks. Selected on CPUs with AVX2.
func DecodeBlock32(encoded string) []byte { return decodeBlocks(encoded, 32) }

// DecodeBlock16 decodes in 16-byte blocks. Selected on CPUs with SSE4.
func DecodeBlock16(encoded string) []byte { return decodeBlocks(encoded, 16) }

var decodeTable [256]byte

func init() {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	for i := 0; i < len(alphabet); i++ {
		decodeTable[alphabet[i]] = byte(i)
	}
}

// DecodeFallback is the scalar decoder: a classic 4-character sliding window
// that stops at the first '=' and emits 1 or 2 bytes for a final incomplete
// group of 2 or 3 characters.
func DecodeFallback(encoded string) []byte {
	out := make([]byte, 0, len(encoded)/4*3)
	var group [4]byte
	n := 0
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c == '=' {
			break
		}
		group[n] = decodeTable[c]
		n++
		if n == 4 {
			out = append(out,
				group[0]<<2|group[1]>>4,
				(group[1]&0xF)<<4|group[2]>>2,
				(group[2]&0x3)<<6|group[3])
			n = 0
		}
	}
	switch n {
	case 2:
		out = append(out, group[0]<<2|group[1]>>4)
	case 3:
		out = append(out,
			group[0]<<2|group[1]>>4,
			(group[1]&0xF)<<4|group[2]>>2)
	}
	return out
}

// selected is fixed once at startup; all paths produce identical output for
// well-formed input, so the choice is invisible to callers.
var selected = pickDecoder()

func pickDecoder() func(string) []byte {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX2):
		return DecodeBlock32
	case cpuid.CPU.Supports(cpuid.SSE4):
		return DecodeBlock16
	default:
		return DecodeFallback
	}
}

// Decode decodes base64 text using the widest decoder the CPU supports.
func Decode(encoded string) []byte { return selected(encoded) }
