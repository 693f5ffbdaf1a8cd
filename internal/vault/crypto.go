// Package vault provides the security primitives of the guard: one-way
// hashing for passwords and confirmation keys, secret issuance, and
// AES-GCM encryption for secrets at rest.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Encrypt takes a plaintext string and a 32-byte key, returning an encrypted hex string.
// It is used to protect record secrets before they reach the persistence layer.
func Encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	// GCM gives us authenticated encryption, so a tampered secret fails to decrypt
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	// Fresh nonce per encryption, prepended so Decrypt can find it
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return fmt.Sprintf("%x", ciphertext), nil
}

// Decrypt takes the hex string and the 32-byte key to return the original text.
func Decrypt(cipherHex string, key []byte) (string, error) {
	var ciphertext []byte
	_, err := fmt.Sscanf(cipherHex, "%x", &ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, actualCiphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, actualCiphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed (wrong key or tampered data)")
	}

	return string(plaintext), nil
}
