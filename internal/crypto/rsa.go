package crypto

import (
	"crypto"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"

	// Register SHA-256, SHA-384 and SHA-512 with crypto.Hash.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// DefaultExponent is the only public exponent Go's key generator produces.
const DefaultExponent = 65537

// MinKeyBits is the smallest modulus accepted by GenerateRSAKey.
const MinKeyBits = 1024

var (
	ErrUnsupportedExponent = errors.New("unsupported public exponent")
	ErrKeyTooSmall         = errors.New("rsa key size too small")
	ErrInvalidScheme       = errors.New("invalid signature scheme")
	ErrHashUnavailable     = errors.New("hash function unavailable")
)

var rsaGenerateKey = rsa.GenerateKey

// Scheme names an RSA signature padding scheme.
type Scheme string

const (
	// SchemePKCS1v15 is RSASSA-PKCS1-v1_5 from PKCS #1 v1.5. Deterministic.
	SchemePKCS1v15 Scheme = "RSASSA-PKCS1-V1_5"
	// SchemePSS is RSASSA-PSS from PKCS #1 v2.1, with a salt as long as the hash.
	SchemePSS Scheme = "RSASSA-PSS"
)

func (s Scheme) String() string { return string(s) }

// ParseScheme maps a scheme name to a Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch Scheme(name) {
	case SchemePKCS1v15, SchemePSS:
		return Scheme(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScheme, name)
}

// ParseHash maps crypto.Hash names such as "SHA-256" to a crypto.Hash.
func ParseHash(name string) (crypto.Hash, error) {
	switch name {
	case crypto.SHA256.String():
		return crypto.SHA256, nil
	case crypto.SHA384.String():
		return crypto.SHA384, nil
	case crypto.SHA512.String():
		return crypto.SHA512, nil
	}
	return 0, fmt.Errorf("unsupported hash algorithm %q", name)
}

// GenerateRSAKey creates an RSA key pair of the given size, drawing
// randomness from random, and precomputes its CRT values.
func GenerateRSAKey(random io.Reader, bits, exponent int) (*rsa.PrivateKey, error) {
	if exponent != DefaultExponent {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedExponent, exponent)
	}
	if bits < MinKeyBits {
		return nil, fmt.Errorf("%w: %d bits", ErrKeyTooSmall, bits)
	}

	key, err := rsaGenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	key.Precompute()
	return key, nil
}

// SignRSA hashes data with h and signs the digest using scheme.
// The signature is key.Size() bytes long.
func SignRSA(random io.Reader, key *rsa.PrivateKey, scheme Scheme, h crypto.Hash, data []byte) ([]byte, error) {
	dig, err := digest(h, data)
	if err != nil {
		return nil, err
	}

	var sig []byte
	switch scheme {
	case SchemePSS:
		sig, err = rsa.SignPSS(random, key, h, dig, pssOptions(h))
	case SchemePKCS1v15:
		sig, err = rsa.SignPKCS1v15(random, key, h, dig)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidScheme, scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("rsa sign: %w", err)
	}
	return sig, nil
}

// VerifyRSA checks sig over data using scheme and h. A nil error means
// the signature is valid.
func VerifyRSA(pub *rsa.PublicKey, scheme Scheme, h crypto.Hash, data, sig []byte) error {
	dig, err := digest(h, data)
	if err != nil {
		return err
	}

	switch scheme {
	case SchemePSS:
		err = rsa.VerifyPSS(pub, h, dig, sig, pssOptions(h))
	case SchemePKCS1v15:
		err = rsa.VerifyPKCS1v15(pub, h, dig, sig)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScheme, scheme)
	}
	if err != nil {
		return fmt.Errorf("rsa verify: %w", err)
	}
	return nil
}

func pssOptions(h crypto.Hash) *rsa.PSSOptions {
	return &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h}
}

func digest(h crypto.Hash, data []byte) ([]byte, error) {
	if !h.Available() {
		return nil, fmt.Errorf("%w: %v", ErrHashUnavailable, h)
	}
	hh := h.New()
	hh.Write(data)
	return hh.Sum(nil), nil
}
