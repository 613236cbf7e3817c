package hsm

import (
	stdcrypto "crypto"
	"crypto/rsa"
	"io"

	"github.com/glinharesb/rsa-sign-demo/internal/crypto"
)

// SoftwareHSM is a software-only provider backed by crypto/rsa.
type SoftwareHSM struct{}

// NewSoftwareHSM returns a provider that runs entirely in process.
func NewSoftwareHSM() *SoftwareHSM {
	return &SoftwareHSM{}
}

func (s *SoftwareHSM) GenerateKey(random io.Reader, bits, exponent int) (*rsa.PrivateKey, error) {
	return crypto.GenerateRSAKey(random, bits, exponent)
}

func (s *SoftwareHSM) Sign(random io.Reader, key *rsa.PrivateKey, scheme crypto.Scheme, h stdcrypto.Hash, data []byte) ([]byte, error) {
	return crypto.SignRSA(random, key, scheme, h, data)
}

func (s *SoftwareHSM) Verify(pub *rsa.PublicKey, scheme crypto.Scheme, h stdcrypto.Hash, data, signature []byte) error {
	return crypto.VerifyRSA(pub, scheme, h, data, signature)
}

var _ Provider = (*SoftwareHSM)(nil)
