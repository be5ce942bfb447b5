package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshnies/datadoc/models"
)

const (
	AlgorithmPSS = "RSASSA-PSS"
	// Hex string.
	MediaTypePlainPSS = "application/vnd.datadoc.signature.rsa.pss"
	// SIGNATURE block followed by CERTIFICATE blocks.
	MediaTypePEM = "application/x-pem-file"

	EncodingPEM   = "pem"
	EncodingPlain = "plain"

	signatureBlockType       = "SIGNATURE"
	signatureAlgorithmHeader = "Signature Algorithm"
	certificateBlockType     = "CERTIFICATE"
)

var ErrNoTrust = errors.New("no public key or trust anchor to verify against")

// Signs manifest digests with an RSA key.
type Signer struct {
	Key *rsa.PrivateKey
	// Certificate chain embedded into PEM signatures, leaf first.
	Chain []*x509.Certificate
	// "pem" (default) or "plain".
	Encoding string
}

func (s Signer) Sign(d models.Digest) (models.SignatureInfo, error) {
	if s.Key == nil {
		return models.SignatureInfo{}, errors.New("private key not found")
	}

	hash, dig, err := extractHashAndDigest(d)
	if err != nil {
		return models.SignatureInfo{}, err
	}

	sig, err := rsa.SignPSS(rand.Reader, s.Key, hash, dig, nil)
	if err != nil {
		return models.SignatureInfo{}, fmt.Errorf("rsa-pss sign: %w", err)
	}

	switch s.Encoding {
	case EncodingPlain:
		return models.SignatureInfo{
			Algorithm: AlgorithmPSS,
			MediaType: MediaTypePlainPSS,
			Value:     hex.EncodeToString(sig),
		}, nil

	case EncodingPEM, "":
		info := models.SignatureInfo{
			Algorithm: AlgorithmPSS,
			MediaType: MediaTypePEM,
			Value:     string(signatureToPEM(sig, s.Chain)),
		}
		if len(s.Chain) > 0 {
			info.Issuer = s.Chain[0].Subject.String()
		}
		return info, nil
	}

	return models.SignatureInfo{}, fmt.Errorf("unsupported signature encoding %q", s.Encoding)
}

// Verifies manifest signatures.
type Verifier struct {
	// Key for plain signatures. For PEM signatures without an anchor the
	// embedded leaf must carry this key.
	PublicKey *rsa.PublicKey
	// Trusted certificate the embedded chain must lead to.
	Anchor *x509.Certificate
	// Additional trusted roots.
	Roots *x509.CertPool
	Now   func() time.Time
}

func (v Verifier) Verify(d models.Digest, info models.SignatureInfo) error {
	hash, dig, err := extractHashAndDigest(d)
	if err != nil {
		return err
	}

	switch info.MediaType {
	case MediaTypePlainPSS:
		if v.PublicKey == nil {
			return fmt.Errorf("missing public key, required for signatures with media type %q", MediaTypePlainPSS)
		}
		sig, err := hex.DecodeString(info.Value)
		if err != nil {
			return fmt.Errorf("decode hex signature: %w", err)
		}
		return rsa.VerifyPSS(v.PublicKey, hash, dig, sig, nil)

	case MediaTypePEM:
		sig, algo, chain, err := signatureFromPEM([]byte(info.Value))
		if err != nil {
			return fmt.Errorf("parse pem signature: %w", err)
		}
		if algo != "" && algo != AlgorithmPSS {
			return fmt.Errorf("unexpected signature algorithm %q", algo)
		}

		key, err := v.trustedKey(chain)
		if err != nil {
			return err
		}
		if iss := strings.TrimSpace(info.Issuer); iss != "" && len(chain) > 0 && chain[0].Subject.String() != iss {
			return fmt.Errorf("issuer mismatch: signature names %q, certificate is %q", iss, chain[0].Subject.String())
		}
		return rsa.VerifyPSS(key, hash, dig, sig, nil)
	}

	return fmt.Errorf("unsupported media type %q", info.MediaType)
}

// Resolve the key a PEM signature is checked with.
func (v Verifier) trustedKey(chain []*x509.Certificate) (*rsa.PublicKey, error) {
	if len(chain) == 0 {
		if v.PublicKey == nil {
			return nil, errors.New("pem signature missing certificate chain")
		}
		return v.PublicKey, nil
	}

	leaf := chain[0]
	leafKey, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("leaf certificate does not hold an RSA public key")
	}

	switch {
	case v.Anchor != nil || v.Roots != nil:
		if err := v.verifyChain(leaf, chain[1:]); err != nil {
			return nil, fmt.Errorf("certificate verification failed: %w", err)
		}
	case v.PublicKey != nil:
		if !leafKey.Equal(v.PublicKey) {
			return nil, errors.New("leaf certificate key does not match the public key")
		}
	default:
		return nil, ErrNoTrust
	}
	return leafKey, nil
}

func (v Verifier) verifyChain(leaf *x509.Certificate, intermediates []*x509.Certificate) error {
	roots := v.Roots
	if roots == nil {
		roots = x509.NewCertPool()
	} else {
		roots = roots.Clone()
	}
	if v.Anchor != nil {
		roots.AddCert(v.Anchor)
	}

	var ip *x509.CertPool
	if len(intermediates) > 0 {
		ip = x509.NewCertPool()
		for _, c := range intermediates {
			ip.AddCert(c)
		}
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		Intermediates: ip,
		Roots:         roots,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		CurrentTime:   now(),
	})
	return err
}

func signatureToPEM(sig []byte, chain []*x509.Certificate) []byte {
	out := pem.EncodeToMemory(&pem.Block{
		Type:    signatureBlockType,
		Headers: map[string]string{signatureAlgorithmHeader: AlgorithmPSS},
		Bytes:   sig,
	})
	for _, c := range chain {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: certificateBlockType, Bytes: c.Raw})...)
	}
	return out
}

// First SIGNATURE block, its algorithm header and the certificates after it.
func signatureFromPEM(data []byte) ([]byte, string, []*x509.Certificate, error) {
	first, rest := pem.Decode(data)
	if first == nil {
		return nil, "", nil, errors.New("no pem data")
	}
	if first.Type != signatureBlockType {
		return nil, "", nil, fmt.Errorf("expected %s block, got %s", signatureBlockType, first.Type)
	}

	chain, err := ParseCertificateChain(rest)
	if err != nil {
		return nil, "", nil, fmt.Errorf("parse certificate chain: %w", err)
	}
	return first.Bytes, first.Headers[signatureAlgorithmHeader], chain, nil
}

func extractHashAndDigest(d models.Digest) (crypto.Hash, []byte, error) {
	if d.HashAlgorithm == "" {
		return 0, nil, errors.New("missing hash algorithm")
	}
	if d.Value == "" {
		return 0, nil, errors.New("missing digest value")
	}
	b, err := hex.DecodeString(d.Value)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid hex digest: %w", err)
	}
	h, err := mapHash(d.HashAlgorithm)
	if err != nil {
		return 0, nil, err
	}
	if len(b) != h.Size() {
		return 0, nil, fmt.Errorf("digest is %d bytes, %s needs %d", len(b), h, h.Size())
	}
	return h, b, nil
}

// Accepts "SHA-256" style names as well as crypto.Hash names.
func mapHash(a string) (crypto.Hash, error) {
	switch strings.ToLower(strings.ReplaceAll(a, "-", "")) {
	case "sha256":
		return crypto.SHA256, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	}
	return 0, fmt.Errorf("unsupported hash algorithm %q", a)
}
