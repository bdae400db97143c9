package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Message-level encryption for bridge payloads. This layer is independent of
// transport TLS: even on a plaintext transport an intercepted body reveals
// nothing without the bearer token the shared secret derives from.

const (
	payloadSecretSize = 32
	payloadNonceSize  = 12
	payloadTagSize    = 16
)

// Salt and context strings for deriving the shared secret from a bearer
// token. These are part of the wire contract with the browser extension and
// must not change.
var (
	payloadSecretSalt = []byte("secure-password-manager-payload-encryption")
	payloadSecretInfo = []byte("browser-bridge-v1")
)

var (
	ErrInvalidSecret  = errors.New("cryptox: shared secret must be 32 bytes")
	ErrInvalidPayload = errors.New("cryptox: invalid encrypted payload")
)

// Envelope is the wire form of an encrypted payload. All fields are standard
// base64. The tag is carried separately from the ciphertext so the envelope
// shape matches the extension's WebCrypto output.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Tag        string `json:"tag"`
}

// PayloadEncryptor encrypts and decrypts JSON payloads with AES-256-GCM,
// deriving a fresh per-message key from the shared secret and the message
// nonce via HKDF-SHA256.
type PayloadEncryptor struct {
	secret []byte
}

// NewPayloadEncryptor creates an encryptor from a 32-byte shared secret.
func NewPayloadEncryptor(secret []byte) (*PayloadEncryptor, error) {
	if len(secret) != payloadSecretSize {
		return nil, ErrInvalidSecret
	}
	return &PayloadEncryptor{secret: append([]byte(nil), secret...)}, nil
}

// NewPayloadEncryptorFromToken derives the shared secret from a bearer token
// and returns an encryptor keyed with it. Both sides of the bridge derive the
// same secret from the token issued at pairing time.
func NewPayloadEncryptorFromToken(token string) (*PayloadEncryptor, error) {
	secret, err := deriveKey([]byte(token), payloadSecretSalt, payloadSecretInfo)
	if err != nil {
		return nil, err
	}
	return NewPayloadEncryptor(secret)
}

// GenerateSharedSecret returns a new random 32-byte payload secret.
func GenerateSharedSecret() ([]byte, error) {
	secret := make([]byte, payloadSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate shared secret: %w", err)
	}
	return secret, nil
}

// Encrypt serializes v to JSON and encrypts it, returning the envelope.
func (p *PayloadEncryptor) Encrypt(v any) (Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to serialize payload: %w", err)
	}

	nonce := make([]byte, payloadNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aead, err := p.messageAEAD(nonce)
	if err != nil {
		return Envelope{}, err
	}

	// Seal appends ciphertext||tag; the envelope carries them separately.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - payloadTagSize

	return Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Tag:        base64.StdEncoding.EncodeToString(sealed[split:]),
	}, nil
}

// Decrypt authenticates and decrypts an envelope, unmarshalling the JSON
// plaintext into out. Any tag mismatch, malformed field, or non-JSON
// plaintext is an error; partial data is never returned.
func (p *PayloadEncryptor) Decrypt(env Envelope, out any) error {
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return fmt.Errorf("%w: bad ciphertext encoding", ErrInvalidPayload)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonce) != payloadNonceSize {
		return fmt.Errorf("%w: bad nonce", ErrInvalidPayload)
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil || len(tag) != payloadTagSize {
		return fmt.Errorf("%w: bad tag", ErrInvalidPayload)
	}

	aead, err := p.messageAEAD(nonce)
	if err != nil {
		return err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return fmt.Errorf("%w: authentication failed", ErrInvalidPayload)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: plaintext is not valid JSON", ErrInvalidPayload)
	}
	return nil
}

// messageAEAD derives the per-message key (HKDF with the nonce as context)
// and constructs the AES-256-GCM AEAD for it.
func (p *PayloadEncryptor) messageAEAD(nonce []byte) (cipher.AEAD, error) {
	key, err := deriveKey(p.secret, nil, nonce)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

func deriveKey(secret, salt, info []byte) ([]byte, error) {
	key := make([]byte, payloadSecretSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), key); err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}
