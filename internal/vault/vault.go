// Package vault is the desktop credential vault the bridge mediates access
// to. The bridge core only consumes the Vault's list/encrypt/decrypt/store
// surface; storage and encryption details stay behind it.
package vault

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a credential id does not exist.
var ErrNotFound = errors.New("vault: credential not found")

// Credential is a stored vault entry. EncryptedPassword is opaque ciphertext
// produced by the vault cipher; it is never exposed over the bridge.
type Credential struct {
	ID                int64
	Website           string
	Username          string
	EncryptedPassword []byte
	Category          string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Favorite          bool
}

// Store persists credentials. The sqlite driver implements this.
type Store interface {
	ListCredentials(ctx context.Context) ([]Credential, error)
	StoreCredential(ctx context.Context, c Credential) (int64, error)
	DeleteCredential(ctx context.Context, id int64) error
	Close() error
}

// Vault combines a credential store with the cipher that protects password
// material at rest.
type Vault struct {
	store  Store
	cipher *Cipher
}

// New assembles a Vault from its parts.
func New(store Store, cipher *Cipher) *Vault {
	return &Vault{store: store, cipher: cipher}
}

// ListCredentials returns every stored entry with passwords still encrypted.
func (v *Vault) ListCredentials(ctx context.Context) ([]Credential, error) {
	return v.store.ListCredentials(ctx)
}

// Encrypt seals a plaintext password for storage.
func (v *Vault) Encrypt(plaintext string) ([]byte, error) {
	return v.cipher.Encrypt([]byte(plaintext))
}

// Decrypt opens a stored password. Fails on any tampering or key mismatch.
func (v *Vault) Decrypt(encrypted []byte) (string, error) {
	plaintext, err := v.cipher.Decrypt(encrypted)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// StoreCredential writes a new entry through to the store. Duplicate
// (website, username) pairs are allowed; deduplication is a UI concern.
func (v *Vault) StoreCredential(ctx context.Context, c Credential) (int64, error) {
	return v.store.StoreCredential(ctx, c)
}

// DeleteCredential removes an entry by id.
func (v *Vault) DeleteCredential(ctx context.Context, id int64) error {
	return v.store.DeleteCredential(ctx, id)
}

// Close releases the underlying store.
func (v *Vault) Close() error {
	return v.store.Close()
}
