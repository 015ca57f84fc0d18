// Package randcode draws short upper-case base36 codes from crypto/rand.
package randcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var alphabetLen = big.NewInt(int64(len(Alphabet)))

func New(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("randcode: %w", err)
		}
		buf[i] = Alphabet[idx.Int64()]
	}
	return string(buf), nil
}
