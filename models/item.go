package models

// Documentation for a single training item.
// Field order matches the manifest layout.
type Item struct {
	// Host the item was downloaded from.
	Domain string `json:"domain"`
	// Composite ISCC: Meta-ID (when a title exists), Content-ID, Data-ID, Instance-ID.
	ISCC      string `json:"iscc"`
	Timestamp int64  `json:"timestamp"`
	Bytes     int64  `json:"bytes"`
	// Hex SHA-256d Merkle root of the raw bytes.
	Checksum  string `json:"checksum"`
	MimeType  string `json:"mime-type"`
	Copyright string `json:"copyright,omitempty"`
}

// Metadata entry stored next to each image inside a shard.
type Sample struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}
