// Package drbg wraps the NIST SP 800-90A CTR_DRBG (AES-256, with
// derivation function) as an io.Reader seeded from an entropy source and
// a personalization string.
package drbg

import (
	"errors"
	"fmt"
	"io"
	"sync"

	sp800 "github.com/canonical/go-sp800.90a-drbg"
)

const (
	// KeyLen selects AES-256.
	KeyLen = 32
	// NonceLen is half the security strength, read after the entropy input.
	NonceLen = KeyLen / 2
	// EntropyLen is the number of bytes read from the source at instantiation.
	EntropyLen = KeyLen + NonceLen
	// MaxSeedInput bounds entropy plus personalization or additional input.
	MaxSeedInput = 384
	// MaxRequest is the largest single generate request; larger reads are split.
	MaxRequest = 1024
)

var (
	ErrEntropySourceFailed = errors.New("drbg: entropy source failed")
	ErrInputTooBig         = errors.New("drbg: input too big")
	ErrClosed              = errors.New("drbg: generator closed")
)

// CTR is safe for concurrent use.
type CTR struct {
	mu     sync.Mutex
	d      *sp800.DRBG
	closed bool
}

// New instantiates a CTR_DRBG. Entropy input and nonce are read from
// entropy, which also serves later reseeds.
func New(entropy io.Reader, personalization []byte) (*CTR, error) {
	if len(personalization) > MaxSeedInput-EntropyLen {
		return nil, fmt.Errorf("%w: personalization is %d bytes", ErrInputTooBig, len(personalization))
	}

	seed := make([]byte, EntropyLen)
	defer clear(seed)
	if _, err := io.ReadFull(entropy, seed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntropySourceFailed, err)
	}

	d, err := sp800.NewCTRWithExternalEntropy(KeyLen, seed[:KeyLen], seed[KeyLen:], personalization, entropy)
	if err != nil {
		return nil, fmt.Errorf("drbg: instantiate: %w", err)
	}
	return &CTR{d: d}, nil
}

// Read fills p with pseudorandom bytes. It never returns a short read
// without an error.
func (c *CTR) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	n := 0
	for n < len(p) {
		chunk := min(len(p)-n, MaxRequest)
		if err := c.d.Generate(nil, p[n:n+chunk]); err != nil {
			return n, fmt.Errorf("%w: %w", ErrEntropySourceFailed, err)
		}
		n += chunk
	}
	return n, nil
}

// Reseed mixes fresh entropy and optional additional input into the state.
func (c *CTR) Reseed(additional []byte) error {
	if len(additional) > MaxSeedInput-EntropyLen {
		return fmt.Errorf("%w: additional input is %d bytes", ErrInputTooBig, len(additional))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.d.Reseed(additional); err != nil {
		return fmt.Errorf("%w: %w", ErrEntropySourceFailed, err)
	}
	return nil
}

// Close drops the generator state. Further reads fail with ErrClosed.
func (c *CTR) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.d = nil
	c.closed = true
	return nil
}
