package models

// Digest of a manifest.
type Digest struct {
	HashAlgorithm          string `json:"hashAlgorithm"`
	NormalisationAlgorithm string `json:"normalisationAlgorithm"`
	Value                  string `json:"value"`
}

// Raw signature value and how it is encoded.
type SignatureInfo struct {
	Algorithm string `json:"algorithm"`
	MediaType string `json:"mediaType"`
	Value     string `json:"value"`
	Issuer    string `json:"issuer,omitempty"`
}

// Signature envelope written next to a signed manifest.
type Signature struct {
	Version   string        `json:"version"`
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Manifest  string        `json:"manifest"`
	CreatedAt int64         `json:"created_at"`
	Digest    Digest        `json:"digest"`
	Signature SignatureInfo `json:"signature"`
}
