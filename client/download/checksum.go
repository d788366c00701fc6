package download

import (
	"encoding/hex"
	"fmt"
	"hash"
)

// checksumVerifier hashes everything written through it and compares the
// digest with the expected hex string once the copy completes.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

func (v *checksumVerifier) verify() error {
	if v == nil {
		return nil
	}

	if actual := hex.EncodeToString(v.hash.Sum(nil)); actual != v.expected {
		return &Error{
			Err:    ErrChecksumMismatch,
			Detail: fmt.Sprintf("expected %s, got %s", v.expected, actual),
		}
	}

	return nil
}
