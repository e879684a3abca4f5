// Package vault protects the sensitive fields of vault entries at rest.
package vault

import (
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/server/models"
)

// FieldCipher encrypts and decrypts a single string field.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// Sealer encrypts Username, Password and Notes. Title and URL stay readable
// so entries can be listed and searched.
type Sealer struct {
	cipher FieldCipher
}

func NewSealer(c FieldCipher) *Sealer {
	return &Sealer{cipher: c}
}

// Seal returns a copy of e with its secret fields encrypted.
func (s *Sealer) Seal(e models.Entry) (models.Entry, error) {
	return s.apply(e, s.cipher.Encrypt)
}

// Open returns a copy of e with its secret fields decrypted. If any field
// fails to decrypt, the whole entry is rejected.
func (s *Sealer) Open(e models.Entry) (models.Entry, error) {
	return s.apply(e, s.cipher.Decrypt)
}

func (s *Sealer) apply(e models.Entry, fn func(string) (string, error)) (models.Entry, error) {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"username", &e.Username},
		{"password", &e.Password},
		{"notes", &e.Notes},
	}
	for _, f := range fields {
		v, err := fn(*f.ptr)
		if err != nil {
			return models.Entry{}, fmt.Errorf("entry %s field %s: %w", e.ID, f.name, err)
		}
		*f.ptr = v
	}
	return e, nil
}
