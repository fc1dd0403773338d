package random

import (
	crand "crypto/rand"
	"math/big"
	mrand "math/rand"
)

// Upper is the alphabet of human readable codes.
const Upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const lower = "abcdefghijklmnopqrstuvwxyz0123456789"

// String returns a non-cryptographic lowercase alphanumeric string.
func String(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = lower[mrand.Intn(len(lower))]
	}
	return string(b)
}

// StringSecure returns a string of length characters drawn from charset
// with crypto/rand.
func StringSecure(charset string, length int) (string, error) {
	b := make([]byte, length)
	l := big.NewInt(int64(len(charset)))
	for i := range b {
		num, err := crand.Int(crand.Reader, l)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
