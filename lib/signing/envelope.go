package signing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/manifest"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/joshnies/datadoc/models"
	"github.com/lucsky/cuid"
)

const (
	EnvelopeVersion    = "1.0.0"
	envelopeConstraint = "^1"
)

var ErrDigestMismatch = errors.New("manifest digest does not match the signature")

// Returns the signature envelope path for a manifest: "<name>.sig.json".
func SignaturePath(manifestPath string) string {
	return strings.TrimSuffix(manifestPath, filepath.Ext(manifestPath)) + constants.SignatureSuffix
}

// SignManifest signs a manifest file and writes the envelope next to it.
func SignManifest(manifestPath string, signer Signer, name string) (models.Signature, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return models.Signature{}, err
	}
	if err := manifest.Validate(raw); err != nil {
		return models.Signature{}, err
	}

	d, err := manifest.Digest(raw)
	if err != nil {
		return models.Signature{}, err
	}
	spec := manifest.DigestSpec(d)

	info, err := signer.Sign(spec)
	if err != nil {
		return models.Signature{}, err
	}

	sig := models.Signature{
		Version:   EnvelopeVersion,
		ID:        cuid.New(),
		Name:      util.OrDefault(name, filepath.Base(manifestPath)),
		Manifest:  filepath.Base(manifestPath),
		CreatedAt: time.Now().Unix(),
		Digest:    spec,
		Signature: info,
	}

	if err := WriteSignature(SignaturePath(manifestPath), sig); err != nil {
		return models.Signature{}, err
	}
	return sig, nil
}

// VerifyManifest checks a manifest file against its envelope.
func VerifyManifest(manifestPath string, v Verifier) (models.Signature, error) {
	sig, err := ReadSignature(SignaturePath(manifestPath))
	if err != nil {
		return models.Signature{}, err
	}

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return sig, err
	}
	if err := manifest.Validate(raw); err != nil {
		return sig, err
	}

	d, err := manifest.Digest(raw)
	if err != nil {
		return sig, err
	}
	if d.Encoded() != strings.ToLower(sig.Digest.Value) {
		return sig, ErrDigestMismatch
	}

	if err := v.Verify(sig.Digest, sig.Signature); err != nil {
		return sig, fmt.Errorf("signature %s: %w", sig.ID, err)
	}
	return sig, nil
}

func WriteSignature(path string, sig models.Signature) error {
	return util.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sig)
	})
}

// Read an envelope and check its version is supported.
func ReadSignature(path string) (models.Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Signature{}, err
	}

	var sig models.Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		return models.Signature{}, fmt.Errorf("decode signature %s: %w", path, err)
	}

	version, err := semver.NewVersion(sig.Version)
	if err != nil {
		return models.Signature{}, fmt.Errorf("signature %s: invalid version %q: %w", path, sig.Version, err)
	}
	constraint, err := semver.NewConstraint(envelopeConstraint)
	if err != nil {
		return models.Signature{}, err
	}
	if !constraint.Check(version) {
		return models.Signature{}, fmt.Errorf("signature %s: unsupported version %s", path, sig.Version)
	}
	return sig, nil
}
