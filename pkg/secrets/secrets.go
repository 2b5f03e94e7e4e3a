// Package secrets encrypts and decrypts Environment credentials at rest
// (§9), using one ChaCha20-Poly1305 key derived via HKDF from a master
// secret supplied at runtime. Box does not count or limit decryptions;
// envbind.Decrypt documents where they happen.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Box encrypts and decrypts short plaintexts (passwords, API tokens) with a
// key derived once at construction via HKDF-SHA256 from a runtime-supplied
// master secret, so the raw master secret is never used directly as a
// cipher key and callers can safely rotate info/context strings per field
// class without re-deriving from scratch.
type Box struct {
	cipher cipherAEAD
}

// cipherAEAD is the minimal surface Box needs from a chacha20poly1305 AEAD,
// named to keep Box's field free of the concrete crypto type in doc output.
type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

// NewBox derives a 256-bit key from masterSecret via HKDF-SHA256 (info
// "qaflow-environment-credentials") and constructs a ChaCha20-Poly1305 AEAD
// over it. masterSecret is typically read once at process start from the
// env var named by config.SecretsConfig.MasterKeyEnv.
func NewBox(masterSecret string) (*Box, error) {
	if masterSecret == "" {
		return nil, fmt.Errorf("secrets: master secret is empty")
	}

	kdf := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte("qaflow-environment-credentials"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: construct aead: %w", err)
	}
	return &Box{cipher: aead}, nil
}

// Encrypt seals plaintext, returning a self-describing ciphertext (nonce
// prefix + sealed box) suitable for storage in a BYTEA column.
func (b *Box) Encrypt(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	nonce := make([]byte, b.cipher.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secrets: generate nonce: %w", err)
	}
	sealed := b.cipher.Seal(nil, nonce, []byte(plaintext), nil)
	return append(nonce, sealed...), nil
}

// Decrypt opens a ciphertext produced by Encrypt. The returned plaintext
// must not outlive the dispatched Execution that needed it (§9).
func (b *Box) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 {
		return "", nil
	}
	nonceSize := b.cipher.NonceSize()
	if len(ciphertext) < nonceSize+b.cipher.Overhead() {
		return "", fmt.Errorf("secrets: ciphertext too short")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plain, err := b.cipher.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: decrypt: %w", err)
	}
	return string(plain), nil
}

// Fingerprint returns a non-reversible hex digest of plaintext, useful for
// log lines that must prove "the same secret as before" without ever
// printing or re-deriving the secret itself.
func Fingerprint(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:8])
}
