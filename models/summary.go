package models

// Aggregate statistics over a manifest.
type Summary struct {
	Items       int            `json:"items"`
	Bytes       int64          `json:"bytes"`
	Copyrighted int            `json:"copyrighted"`
	MimeTypes   map[string]int `json:"mime_types"`
	Domains     map[string]int `json:"domains"`
	// Checksums that occur more than once.
	Duplicates []string `json:"duplicates,omitempty"`

	// Only set by a documentation run.
	Shards  int `json:"shards,omitempty"`
	Cached  int `json:"cached,omitempty"`
	Skipped int `json:"skipped,omitempty"`
	Orphans int `json:"orphans,omitempty"`
}
