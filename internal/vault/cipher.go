package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrDecryptFailed reports ciphertext that could not be authenticated,
// usually a tampered entry or a key file that no longer matches.
var ErrDecryptFailed = errors.New("vault: decryption failed")

const cipherKeySize = 32

// Cipher encrypts credential passwords at rest with AES-256-GCM under a
// random key kept in an owner-only file. Output layout is
// [12-byte nonce][ciphertext][16-byte tag].
type Cipher struct {
	key []byte
}

// NewCipher loads the key from keyPath, generating a fresh one (0600) on
// first use.
func NewCipher(keyPath string) (*Cipher, error) {
	key, err := os.ReadFile(keyPath)
	if err == nil && len(key) == cipherKeySize {
		return &Cipher{key: key}, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read vault key: %w", err)
	}

	key = make([]byte, cipherKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write vault key: %w", err)
	}
	return &Cipher{key: key}, nil
}

func (c *Cipher) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext with a random nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens data produced by Encrypt. Any authentication failure is
// ErrDecryptFailed; partial plaintext is never returned.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrDecryptFailed
	}

	plaintext, err := aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
