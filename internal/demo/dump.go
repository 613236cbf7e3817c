package demo

import (
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const keyBanner = "\n  +++++++++++++++++ rsa keypair +++++++++++++++++\n\n"

type keyComponent struct {
	name  string
	value *big.Int
}

func keyComponents(key *rsa.PrivateKey) []keyComponent {
	c := []keyComponent{
		{"N", key.N},
		{"E", big.NewInt(int64(key.E))},
		{"D", key.D},
	}
	if len(key.Primes) >= 2 {
		c = append(c, keyComponent{"P", key.Primes[0]}, keyComponent{"Q", key.Primes[1]})
	}
	return append(c,
		keyComponent{"DP", key.Precomputed.Dp},
		keyComponent{"DQ", key.Precomputed.Dq},
		keyComponent{"QP", key.Precomputed.Qinv},
	)
}

// DumpKey writes every key component as uppercase hex between two banners.
func DumpKey(w io.Writer, key *rsa.PrivateKey) {
	fmt.Fprint(w, keyBanner)
	for _, c := range keyComponents(key) {
		fmt.Fprintf(w, "%s: %s\n", c.name, hexMPI(c.value))
	}
	fmt.Fprint(w, keyBanner)
}

// hexMPI renders x big-endian, two digits per byte, without leading zero bytes.
func hexMPI(x *big.Int) string {
	if x == nil {
		return ""
	}
	if x.Sign() == 0 {
		return "00"
	}
	return strings.ToUpper(hex.EncodeToString(x.Bytes()))
}

// DumpSignature writes sig as a hex block of 16 bytes per row.
func DumpSignature(w io.Writer, sig []byte) {
	for i, b := range sig {
		sep := " "
		if i%16 == 0 {
			sep = "\r\n\t"
		}
		end := ""
		if i == len(sig)-1 {
			end = "\r\n"
		}
		fmt.Fprintf(w, "%s%02X%s", sep, b, end)
	}
}
