package hsm

import (
	stdcrypto "crypto"
	"crypto/rsa"
	"io"

	"github.com/glinharesb/rsa-sign-demo/internal/crypto"
)

// Provider abstracts the RSA operations of a security module.
// Real implementations would delegate to PKCS#11 or cloud KMS.
type Provider interface {
	GenerateKey(random io.Reader, bits, exponent int) (*rsa.PrivateKey, error)
	Sign(random io.Reader, key *rsa.PrivateKey, scheme crypto.Scheme, h stdcrypto.Hash, data []byte) ([]byte, error)
	Verify(pub *rsa.PublicKey, scheme crypto.Scheme, h stdcrypto.Hash, data, signature []byte) error
}
