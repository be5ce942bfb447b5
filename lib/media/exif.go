package media

import (
	"bytes"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Shortest notice kept.
const minCopyrightLength = 2

// Checked in order; the first usable value wins.
var copyrightFields = []exif.FieldName{exif.Copyright, exif.Artist}

// Copyright returns the EXIF copyright notice, falling back to the artist.
// Values are repaired with FixText first. Results shorter than two characters
// or holding a "[None]" placeholder are ignored. Returns an empty string when
// nothing usable is present.
func Copyright(data []byte) (notice string) {
	// goexif panics on some malformed IFDs
	defer func() {
		if recover() != nil {
			notice = ""
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	for _, field := range copyrightFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		value, err := tag.StringVal()
		if err != nil {
			continue
		}
		// Checked after repair, which can shorten the value
		value = FixText(strings.TrimRight(value, "\x00"))
		if utf8.RuneCountInString(value) < minCopyrightLength || strings.Contains(value, "[None]") {
			continue
		}
		return value
	}

	return ""
}

// FixText repairs common text damage in embedded metadata: HTML entities,
// UTF-8 decoded as Windows-1252, control characters and odd normalization.
func FixText(s string) string {
	s = html.UnescapeString(s)
	s = fixMojibake(s)
	s = norm.NFC.String(s)

	s = strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError:
			return -1
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// Undo UTF-8 bytes that were decoded as Windows-1252, e.g. "Ã©" -> "é".
func fixMojibake(s string) string {
	suspicious := strings.ContainsAny(s, "ÃÂâ")
	if !suspicious {
		return s
	}

	raw, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil || !utf8.ValidString(raw) {
		return s
	}
	if utf8.RuneCountInString(raw) >= utf8.RuneCountInString(s) {
		return s
	}
	return raw
}
