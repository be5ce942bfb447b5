package signing

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/joshnies/datadoc/lib/util"
)

const (
	MinKeyBits     = 2048
	DefaultKeyBits = 3072

	PrivateKeyFileName  = "key.pem"
	PublicKeyFileName   = "key.pub.pem"
	CertificateFileName = "key.cert.pem"
)

// Parse an RSA private key from PEM (PKCS#1 or PKCS#8).
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		switch block.Type {
		case "RSA PRIVATE KEY":
			return x509.ParsePKCS1PrivateKey(block.Bytes)
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			rsaKey, ok := key.(*rsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("private key is %T, not RSA", key)
			}
			return rsaKey, nil
		}
	}
	return nil, errors.New("no private key found in pem data")
}

// Parse an RSA public key from PEM. Accepts PKIX and PKCS#1 public keys as
// well as certificates; the certificate is returned when one was found.
func ParsePublicKey(data []byte) (*rsa.PublicKey, *x509.Certificate, error) {
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		switch block.Type {
		case "PUBLIC KEY":
			key, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, nil, err
			}
			rsaKey, ok := key.(*rsa.PublicKey)
			if !ok {
				return nil, nil, fmt.Errorf("public key is %T, not RSA", key)
			}
			return rsaKey, nil, nil

		case "RSA PUBLIC KEY":
			key, err := x509.ParsePKCS1PublicKey(block.Bytes)
			return key, nil, err

		case certificateBlockType:
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, nil, err
			}
			rsaKey, ok := cert.PublicKey.(*rsa.PublicKey)
			if !ok {
				return nil, nil, errors.New("certificate does not hold an RSA public key")
			}
			return rsaKey, cert, nil
		}
	}
	return nil, nil, errors.New("no public key or certificate found in pem data")
}

// Parse consecutive CERTIFICATE blocks. Other block types are ignored.
func ParseCertificateChain(data []byte) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		if block.Type != certificateBlockType {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, nil
}

func LoadPublicKey(path string) (*rsa.PublicKey, *x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	key, cert, err := ParsePublicKey(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, cert, nil
}

func LoadCertificateChain(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	chain, err := ParseCertificateChain(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%s: no certificates found", path)
	}
	return chain, nil
}

func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	if bits < MinKeyBits {
		return nil, fmt.Errorf("key size %d is below the minimum of %d bits", bits, MinKeyBits)
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// Self-signed certificate for key, usable as its own trust anchor.
func SelfSignedCertificate(key *rsa.PrivateKey, commonName string, validity time.Duration) (*x509.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	return x509.ParseCertificate(der)
}

// Paths written by WriteKeyPair.
type KeyFiles struct {
	PrivateKey  string
	PublicKey   string
	Certificate string
}

// Write key.pem (PKCS#8, owner-only) and key.pub.pem (PKIX) into dir, plus
// key.cert.pem when cert is not nil. Existing files are not overwritten.
func WriteKeyPair(dir string, key *rsa.PrivateKey, cert *x509.Certificate) (KeyFiles, error) {
	files := KeyFiles{
		PrivateKey: filepath.Join(dir, PrivateKeyFileName),
		PublicKey:  filepath.Join(dir, PublicKeyFileName),
	}
	if cert != nil {
		files.Certificate = filepath.Join(dir, CertificateFileName)
	}
	for _, path := range []string{files.PrivateKey, files.PublicKey, files.Certificate} {
		if path != "" && util.FileExists(path) {
			return KeyFiles{}, fmt.Errorf("%s already exists", path)
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return KeyFiles{}, err
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return KeyFiles{}, err
	}
	if err := writePEM(files.PrivateKey, 0o600, &pem.Block{Type: "PRIVATE KEY", Bytes: privDER}); err != nil {
		return KeyFiles{}, err
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return KeyFiles{}, err
	}
	if err := writePEM(files.PublicKey, 0o644, &pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}); err != nil {
		return KeyFiles{}, err
	}

	if cert != nil {
		if err := writePEM(files.Certificate, 0o644, &pem.Block{Type: certificateBlockType, Bytes: cert.Raw}); err != nil {
			return KeyFiles{}, err
		}
	}
	return files, nil
}

func writePEM(path string, mode os.FileMode, block *pem.Block) error {
	return util.WriteFileAtomic(path, mode, func(w io.Writer) error {
		return pem.Encode(w, block)
	})
}
