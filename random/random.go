// Package random generates random tokens over an alphanumeric charset.
package random

import (
	crand "crypto/rand"
	"math/big"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// StringSecure returns a string of the given length read from the crypto
// random source.
func StringSecure(length int) (string, error) {
	max := big.NewInt(int64(len(charset)))

	b := make([]byte, length)
	for i := range b {
		num, err := crand.Int(crand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
