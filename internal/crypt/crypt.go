// Package crypt encrypts connection passwords at rest in the local store.
package crypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"

	errwrap "github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

type Cipher struct {
	aead cipher.AEAD
}

// New builds a Cipher from a hex-encoded 32-byte key.
func New(hexKey string) (*Cipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errwrap.Wrap(err, "crypt.New")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errwrap.Wrap(err, "crypt.New")
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plain with a random nonce and returns base64(nonce || box).
func (c *Cipher) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errwrap.Wrap(err, "Cipher.Encrypt")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(enc string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", errwrap.Wrap(err, "Cipher.Decrypt")
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", errwrap.New("Cipher.Decrypt: ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", errwrap.Wrap(err, "Cipher.Decrypt")
	}
	return string(plain), nil
}
