package iscc

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

const (
	metaTrimTitle = 128
	metaTrimExtra = 4096
	metaNgramSize = 4
)

// MetaID computes the Meta-ID from a title and optional extra metadata.
// It also returns the normalized, trimmed inputs the code was computed from.
func MetaID(title, extra string) (code, trimmedTitle, trimmedExtra string) {
	trimmedTitle = trimUTF8(TextNormalize(title), metaTrimTitle)
	trimmedExtra = trimUTF8(TextNormalize(extra), metaTrimExtra)

	body := simhash(ngramFeatures(trimmedTitle, metaNgramSize))
	if trimmedExtra != "" {
		extraHash := simhash(ngramFeatures(trimmedExtra, metaNgramSize))
		body = body&0xFFFFFFFF00000000 | extraHash>>32
	}

	return Component{Header: HeaderMeta, Body: body}.String(), trimmedTitle, trimmedExtra
}

// TextNormalize lower-cases text, strips marks, punctuation and control
// characters, and collapses whitespace.
func TextNormalize(text string) string {
	decomposed := norm.NFD.String(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(decomposed))
	space := false
	for _, r := range decomposed {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.In(r, unicode.C, unicode.M, unicode.P):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	return norm.NFKC.String(b.String())
}

// Trim to at most n bytes without splitting a rune.
func trimUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return strings.TrimSpace(s)
}

// Character n-grams hashed with xxhash64.
func ngramFeatures(s string, n int) []uint64 {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	if len(runes) <= n {
		return []uint64{xxhash.Sum64String(s)}
	}
	out := make([]uint64, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, xxhash.Sum64String(string(runes[i:i+n])))
	}
	return out
}

// Bitwise majority vote over 64-bit features.
func simhash(features []uint64) uint64 {
	var counts [64]int
	for _, f := range features {
		for i := 0; i < 64; i++ {
			if f>>(63-i)&1 == 1 {
				counts[i]++
			}
		}
	}

	var out uint64
	for i := 0; i < 64; i++ {
		out <<= 1
		if counts[i]*2 > len(features) {
			out |= 1
		}
	}
	return out
}
