package visualping

import (
	"fmt"

	"github.com/awnumar/memguard"
)

// secret keeps the account password encrypted in memory between logins.
type secret struct {
	enclave *memguard.Enclave
}

func newSecret(value string) *secret {
	if value == "" {
		return &secret{}
	}
	// NewEnclave wipes its input, so hand it a private copy.
	return &secret{enclave: memguard.NewEnclave([]byte(value))}
}

// empty reports whether no password was configured.
func (s *secret) empty() bool {
	return s == nil || s.enclave == nil
}

// with opens the enclave for the duration of fn.
func (s *secret) with(fn func(plain []byte) error) error {
	if s.empty() {
		return fn(nil)
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return fmt.Errorf("opening password enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}
