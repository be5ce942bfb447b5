package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/joshnies/datadoc/lib/media/mediatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	decoded, err := Decode(encodePNG(t, gradient(64, 48)))
	require.NoError(t, err)
	assert.Equal(t, "png", decoded.Format)
	assert.Equal(t, "image/png", decoded.MimeType)
	assert.Equal(t, image.Rect(0, 0, 64, 48), decoded.Image.Bounds())

	decoded, err = Decode(encodeJPEG(t, gradient(40, 40)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", decoded.MimeType)
}

func TestDecodeRejectsNonImages(t *testing.T) {
	_, err := Decode([]byte(`{"url": "https://example.com/a.jpg"}`))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrNotImage)

	truncated := encodeJPEG(t, gradient(40, 40))[:100]
	_, err = Decode(truncated)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeType("jpeg"))
	assert.Equal(t, "image/webp", MimeType("webp"))
	assert.Equal(t, "other/bmp", MimeType("bmp"))
}

func TestThumbnail(t *testing.T) {
	thumb := Thumbnail(gradient(300, 200), 32)
	assert.Equal(t, image.Rect(0, 0, 32, 32), thumb.Bounds())

	// Left edge is darker than the right edge of the gradient
	assert.Less(t, thumb.GrayAt(0, 16).Y, thumb.GrayAt(31, 16).Y)
}

func TestCopyrightWithoutExif(t *testing.T) {
	assert.Empty(t, Copyright(encodePNG(t, gradient(8, 8))))
	assert.Empty(t, Copyright(encodeJPEG(t, gradient(8, 8))))
	assert.Empty(t, Copyright([]byte("garbage")))
}

func TestCopyright(t *testing.T) {
	base := encodeJPEG(t, gradient(16, 16))

	cases := []struct {
		name string
		tags map[uint16]string
		want string
	}{
		{
			name: "copyright wins over artist",
			tags: map[uint16]string{mediatest.TagCopyright: "© 2021 Jane Doe", mediatest.TagArtist: "John Roe"},
			want: "© 2021 Jane Doe",
		},
		{
			name: "artist only",
			tags: map[uint16]string{mediatest.TagArtist: "John Roe"},
			want: "John Roe",
		},
		{
			name: "placeholder falls back to artist",
			tags: map[uint16]string{mediatest.TagCopyright: "[None]", mediatest.TagArtist: "John Roe"},
			want: "John Roe",
		},
		{
			name: "too short falls back to artist",
			tags: map[uint16]string{mediatest.TagCopyright: "x", mediatest.TagArtist: "Jo"},
			want: "Jo",
		},
		{
			name: "entity shortened below minimum",
			tags: map[uint16]string{mediatest.TagCopyright: "&amp;", mediatest.TagArtist: "John Roe"},
			want: "John Roe",
		},
		{
			name: "mojibake shortened below minimum",
			tags: map[uint16]string{mediatest.TagCopyright: "Ã©"},
			want: "",
		},
		{
			name: "repaired text",
			tags: map[uint16]string{mediatest.TagCopyright: "  Tom &amp; Jerry\x00 "},
			want: "Tom & Jerry",
		},
		{
			name: "nothing usable",
			tags: map[uint16]string{mediatest.TagCopyright: "[None]", mediatest.TagArtist: " "},
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := mediatest.WithEXIF(base, tc.tags)

			// Still a decodable JPEG
			_, err := Decode(data)
			require.NoError(t, err)

			assert.Equal(t, tc.want, Copyright(data))
		})
	}
}

func TestFixText(t *testing.T) {
	cases := map[string]string{
		"Tom &amp; Jerry":    "Tom & Jerry",
		"CafÃ© Photography":  "Café Photography",
		"  line\none\ttwo  ": "line one two",
		"Jane\x00 Doe":       "Jane Doe",
		"© 2021 Someone":     "© 2021 Someone",
		"Ã plain":            "Ã plain",
	}

	for in, want := range cases {
		assert.Equal(t, want, FixText(in), in)
	}
}
