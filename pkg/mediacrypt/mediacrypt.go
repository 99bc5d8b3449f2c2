package mediacrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// The encrypted CDN scheme: a 32-byte media key is expanded with
// HKDF-SHA256 and a per-category info string into iv + cipher key + mac key.
// The ciphertext carries a truncated HMAC-SHA256 tail that must validate
// before decryption.
const (
	MediaKeySize = 32
	macSize      = 10

	ivLen        = 16
	cipherKeyLen = 32
	macKeyLen    = 32
)

var (
	ErrInvalidMediaKey = errors.New("media key must be 32 bytes")
	ErrTooShort        = errors.New("ciphertext shorter than its integrity tail")
	ErrMacMismatch     = errors.New("media integrity check failed")
	ErrInvalidPadding  = errors.New("invalid padding in decrypted media")
	ErrPlaintextHash   = errors.New("decrypted media does not match expected hash")
)

// KeyInfo returns the HKDF info string for a media category.
func KeyInfo(category string) string {
	switch category {
	case "image", "sticker":
		return "WhatsApp Image Keys"
	case "video":
		return "WhatsApp Video Keys"
	case "audio":
		return "WhatsApp Audio Keys"
	default:
		return "WhatsApp Document Keys"
	}
}

type mediaKeys struct {
	iv        []byte
	cipherKey []byte
	macKey    []byte
}

func expandMediaKey(mediaKey []byte, info string) (*mediaKeys, error) {
	if len(mediaKey) != MediaKeySize {
		return nil, ErrInvalidMediaKey
	}

	expanded := make([]byte, ivLen+cipherKeyLen+macKeyLen+32)
	r := hkdf.New(sha256.New, mediaKey, nil, []byte(info))
	if _, err := io.ReadFull(r, expanded); err != nil {
		return nil, fmt.Errorf("failed to expand media key: %w", err)
	}

	return &mediaKeys{
		iv:        expanded[:ivLen],
		cipherKey: expanded[ivLen : ivLen+cipherKeyLen],
		macKey:    expanded[ivLen+cipherKeyLen : ivLen+cipherKeyLen+macKeyLen],
	}, nil
}

// Decrypt performs the authenticated decryption of an encrypted CDN payload.
// The MAC is verified before any decryption; expectedSHA256, when provided,
// is checked against the recovered plaintext.
func Decrypt(data, mediaKey []byte, info string, expectedSHA256 []byte) ([]byte, error) {
	keys, err := expandMediaKey(mediaKey, info)
	if err != nil {
		return nil, err
	}

	if len(data) <= macSize {
		return nil, ErrTooShort
	}
	ciphertext, mac := data[:len(data)-macSize], data[len(data)-macSize:]

	h := hmac.New(sha256.New, keys.macKey)
	h.Write(keys.iv)
	h.Write(ciphertext)
	if !hmac.Equal(mac, h.Sum(nil)[:macSize]) {
		return nil, ErrMacMismatch
	}

	plaintext, err := decryptCBC(ciphertext, keys.cipherKey, keys.iv)
	if err != nil {
		return nil, err
	}

	if len(expectedSHA256) == sha256.Size {
		sum := sha256.Sum256(plaintext)
		if !hmac.Equal(sum[:], expectedSHA256) {
			return nil, ErrPlaintextHash
		}
	}

	return plaintext, nil
}

// Encrypt is the inverse of Decrypt. It exists for round-trip tests and for
// re-publishing payloads to an encrypted CDN.
func Encrypt(plaintext, mediaKey []byte, info string) ([]byte, error) {
	keys, err := expandMediaKey(mediaKey, info)
	if err != nil {
		return nil, err
	}

	ciphertext, err := encryptCBC(plaintext, keys.cipherKey, keys.iv)
	if err != nil {
		return nil, err
	}

	h := hmac.New(sha256.New, keys.macKey)
	h.Write(keys.iv)
	h.Write(ciphertext)
	return append(ciphertext, h.Sum(nil)[:macSize]...), nil
}

func decryptCBC(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidPadding
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	// PKCS#7 unpad.
	pad := int(plaintext[len(plaintext)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(plaintext) {
		return nil, ErrInvalidPadding
	}
	for _, b := range plaintext[len(plaintext)-pad:] {
		if int(b) != pad {
			return nil, ErrInvalidPadding
		}
	}
	return plaintext[:len(plaintext)-pad], nil
}

func encryptCBC(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+pad)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(pad)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}
