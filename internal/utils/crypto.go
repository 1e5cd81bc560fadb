package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// TokenCipher seals and opens provider access tokens stored on Connection rows.
// The AES-256 key is derived from the deployment master secret with HKDF so the
// raw secret never touches the cipher directly.
type TokenCipher struct {
	aead cipher.AEAD
}

func NewTokenCipher(masterSecret string) (*TokenCipher, error) {
	if masterSecret == "" {
		return nil, fmt.Errorf("missing token master secret")
	}
	kdf := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte("chatwire/connection-token"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init token cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init token gcm: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

func (tc *TokenCipher) Encrypt(plaintext string) (string, error) {
	if tc == nil || tc.aead == nil {
		return "", fmt.Errorf("token cipher not initialized")
	}
	nonce := make([]byte, tc.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := tc.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (tc *TokenCipher) Decrypt(ciphertext string) (string, error) {
	if tc == nil || tc.aead == nil {
		return "", fmt.Errorf("token cipher not initialized")
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode token ciphertext: %w", err)
	}
	ns := tc.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("token ciphertext too short")
	}
	plain, err := tc.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("open token ciphertext: %w", err)
	}
	return string(plain), nil
}
