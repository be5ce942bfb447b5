package manifest

import (
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/joshnies/datadoc/models"
	"github.com/opencontainers/go-digest"
)

const (
	HashAlgorithm          = "SHA-256"
	NormalisationAlgorithm = "jsonCanonicalization/v1"
)

// Digest of the RFC 8785 canonical form of the manifest.
// Formatting changes do not affect the result.
func Digest(raw []byte) (digest.Digest, error) {
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize manifest: %w", err)
	}
	return digest.SHA256.FromBytes(canonical), nil
}

// Describe a digest for a signature envelope.
func DigestSpec(d digest.Digest) models.Digest {
	return models.Digest{
		HashAlgorithm:          HashAlgorithm,
		NormalisationAlgorithm: NormalisationAlgorithm,
		Value:                  d.Encoded(),
	}
}
