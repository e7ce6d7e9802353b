package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// ReferenceAlphabet excludes visually and phonetically ambiguous characters
// (0/O, 1/I/L) so generated codes survive being read aloud over a phone line.
const ReferenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomSegment returns a random string of length n drawn from
// ReferenceAlphabet.
func RandomSegment(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(ReferenceAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = ReferenceAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// SecureToken returns a hex-encoded random token of byteLen random bytes.
func SecureToken(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
