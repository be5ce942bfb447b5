package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/joshnies/datadoc/constants"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Returned for payloads that are not decodable images.
var ErrNotImage = errors.New("not an image")

var mimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// Decoded image with the format it was stored in.
type Image struct {
	Format   string
	MimeType string
	Image    image.Image
}

// Decode an image.
// Payloads that don't sniff as an image are rejected before decoding.
func Decode(data []byte) (*Image, error) {
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, detected.String())
	}
	if detected.Is("image/jpeg") && len(data) < constants.JPEGMinimumBytes {
		return nil, fmt.Errorf("%w: truncated jpeg (%d bytes)", ErrNotImage, len(data))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	return &Image{
		Format:   format,
		MimeType: MimeType(format),
		Image:    img,
	}, nil
}

// Returns the mime-type for a decoder format name.
// Formats without a mapping are reported as "other/<format>".
func MimeType(format string) string {
	if mt, ok := mimeTypes[format]; ok {
		return mt
	}
	return "other/" + format
}

// Grayscale thumbnail of size x size, resized with a Lanczos filter.
func Thumbnail(img image.Image, size int) *image.Gray {
	resized := imaging.Resize(imaging.Grayscale(img), size, size, imaging.Lanczos)
	gray := image.NewGray(resized.Bounds())
	draw.Draw(gray, gray.Bounds(), resized, resized.Bounds().Min, draw.Src)
	return gray
}
