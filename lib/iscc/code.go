// Package iscc computes ISCC (International Standard Content Code) components
// for image training data: Meta-ID, Content-ID-Image, Data-ID and Instance-ID.
//
// Every component is a 1-byte header followed by a 64-bit body, encoded with
// the ISCC base58 alphabet into 13 characters. Components of one item are
// joined with "-" into the composite code stored in manifests.
package iscc

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/samber/lo"
)

// Component headers.
const (
	HeaderMeta         byte = 0x00
	HeaderContentImage byte = 0x12
	HeaderData         byte = 0x20
	HeaderInstance     byte = 0x30
)

// Length of an encoded component.
const CodeLength = 13

const (
	symbols     = "C23456789rB1ZEFGTtYiAaVvMmHUPWXKDNbcdefghLjkSnopRqsJuQwxyz"
	headerWidth = 2
	bodyWidth   = 11
)

var (
	ErrInvalidCode    = errors.New("iscc: invalid code")
	ErrHeaderMismatch = errors.New("iscc: component headers differ")
)

// Component is a single decoded ISCC component.
type Component struct {
	Header byte
	Body   uint64
}

// String encodes the component.
func (c Component) String() string {
	return encodeChunk(uint64(c.Header), headerWidth) + encodeChunk(c.Body, bodyWidth)
}

// Bytes returns the 9-byte digest.
func (c Component) Bytes() []byte {
	out := make([]byte, 9)
	out[0] = c.Header
	for i := 0; i < 8; i++ {
		out[8-i] = byte(c.Body >> (8 * i))
	}
	return out
}

// Encode encodes a 9-byte component digest.
func Encode(digest []byte) (string, error) {
	if len(digest) != 9 {
		return "", fmt.Errorf("%w: digest must be 9 bytes, got %d", ErrInvalidCode, len(digest))
	}
	var body uint64
	for _, b := range digest[1:] {
		body = body<<8 | uint64(b)
	}
	return Component{Header: digest[0], Body: body}.String(), nil
}

// Decode parses an encoded component.
func Decode(code string) (Component, error) {
	if len(code) != CodeLength {
		return Component{}, fmt.Errorf("%w: %q has length %d", ErrInvalidCode, code, len(code))
	}
	header, err := decodeChunk(code[:headerWidth])
	if err != nil {
		return Component{}, err
	}
	if header > 0xFF {
		return Component{}, fmt.Errorf("%w: header of %q out of range", ErrInvalidCode, code)
	}
	body, err := decodeChunk(code[headerWidth:])
	if err != nil {
		return Component{}, err
	}
	return Component{Header: byte(header), Body: body}, nil
}

// Split a composite code into its components.
func Split(composite string) ([]Component, error) {
	parts := strings.Split(composite, "-")
	out := make([]Component, 0, len(parts))
	for _, p := range parts {
		c, err := Decode(p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Compose joins the non-empty component codes.
func Compose(codes ...string) string {
	return strings.Join(lo.Compact(codes), "-")
}

// Distance returns the Hamming distance between two components of the same type.
func Distance(a, b string) (int, error) {
	ca, err := Decode(a)
	if err != nil {
		return 0, err
	}
	cb, err := Decode(b)
	if err != nil {
		return 0, err
	}
	if ca.Header != cb.Header {
		return 0, fmt.Errorf("%w: 0x%02x and 0x%02x", ErrHeaderMismatch, ca.Header, cb.Header)
	}
	return bits.OnesCount64(ca.Body ^ cb.Body), nil
}

func encodeChunk(v uint64, width int) string {
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = symbols[v%58]
		v /= 58
	}
	return string(out)
}

func decodeChunk(s string) (uint64, error) {
	var v uint64
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(symbols, s[i])
		if idx < 0 {
			return 0, fmt.Errorf("%w: character %q", ErrInvalidCode, s[i])
		}
		hi, low := bits.Mul64(v, 58)
		low, carry := bits.Add64(low, uint64(idx), 0)
		if hi != 0 || carry != 0 {
			return 0, fmt.Errorf("%w: %q overflows 64 bits", ErrInvalidCode, s)
		}
		v = low
	}
	return v, nil
}
