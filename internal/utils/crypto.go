package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Cipher encrypts payout destinations at rest with AES-256-GCM.
// A nil *Cipher passes values through unchanged.
type Cipher struct {
	gcm cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 { // AES-256 requires a 32-byte key.
		return nil, fmt.Errorf("invalid encryption key length, want 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Cipher{gcm: gcm}, nil
}

// Encrypt returns the hex-encoded nonce||ciphertext of plainText.
func (c *Cipher) Encrypt(plainText string) (string, error) {
	if c == nil {
		return plainText, nil
	}
	// Never use more than 2^32 random nonces with a given key because of the risk of a repeat.
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.gcm.Seal(nonce, nonce, []byte(plainText), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(cipherHex string) (string, error) {
	if c == nil {
		return cipherHex, nil
	}
	raw, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < c.gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext shorter than nonce")
	}
	// The nonce is prefixed to the ciphertext.
	nonce, body := raw[:c.gcm.NonceSize()], raw[c.gcm.NonceSize():]
	plain, err := c.gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt (wrong key or corrupted data): %w", err)
	}
	return string(plain), nil
}
