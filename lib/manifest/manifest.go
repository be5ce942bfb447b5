package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joshnies/datadoc/lib/util"
	"github.com/joshnies/datadoc/models"
)

// Marshal a single item the way it appears in sidecars and manifests.
func EncodeItem(item models.Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(item); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode items as a JSON array with one indented item per line.
func Encode(w io.Writer, items []models.Item) error {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return err
	}

	for i, item := range items {
		line, err := EncodeItem(item)
		if err != nil {
			return fmt.Errorf("encode item %d: %w", i, err)
		}

		sep := ",\n"
		if i == len(items)-1 {
			sep = "\n"
		}
		if _, err := fmt.Fprintf(w, "  %s%s", line, sep); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "]")
	return err
}

// Write the manifest atomically.
func Write(path string, items []models.Item) error {
	return util.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, items)
	})
}

// Read and schema-check a manifest.
func Read(path string) ([]models.Item, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if err := Validate(raw); err != nil {
		return nil, raw, err
	}

	var items []models.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, raw, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return items, raw, nil
}
