package document

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/iscc"
	"github.com/joshnies/datadoc/lib/media"
	"github.com/joshnies/datadoc/models"
)

// ProcessImage documents a single image.
// Returns an error wrapping media.ErrNotImage when the data can't be decoded;
// callers skip such items. A zero timestamp is replaced with the current time.
func ProcessImage(data []byte, sample models.Sample, timestamp int64) (models.Item, error) {
	img, err := media.Decode(data)
	if err != nil {
		return models.Item{}, err
	}

	content, err := iscc.ContentIDImage(media.Thumbnail(img.Image, constants.ThumbSize))
	if err != nil {
		return models.Item{}, fmt.Errorf("content id: %w", err)
	}

	var meta string
	if strings.TrimSpace(sample.Caption) != "" {
		meta, _, _ = iscc.MetaID(sample.Caption, "")
	}
	instance, checksum := iscc.InstanceID(data)

	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	return models.Item{
		Domain:    domainOf(sample.URL),
		ISCC:      iscc.Compose(meta, content, iscc.DataID(data), instance),
		Timestamp: timestamp,
		Bytes:     int64(len(data)),
		Checksum:  checksum,
		MimeType:  img.MimeType,
		Copyright: media.Copyright(data),
	}, nil
}

// Network location of the source URL, including any port.
func domainOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Host
}
