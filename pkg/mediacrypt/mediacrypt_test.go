package mediacrypt

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, MediaKeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestDecrypt_RoundTrip(t *testing.T) {
	key := randomKey(t)
	plaintext := []byte("media payload that is longer than one aes block for padding coverage")

	ciphertext, err := Encrypt(plaintext, key, KeyInfo("image"))
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	decrypted, err := Decrypt(ciphertext, key, KeyInfo("image"), nil)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecrypt_RoundTripAllCategories(t *testing.T) {
	key := randomKey(t)
	plaintext := []byte("payload")

	for _, category := range []string{"image", "video", "audio", "sticker", "document"} {
		ciphertext, err := Encrypt(plaintext, key, KeyInfo(category))
		require.NoError(t, err, category)

		decrypted, err := Decrypt(ciphertext, key, KeyInfo(category), nil)
		require.NoError(t, err, category)
		assert.Equal(t, plaintext, decrypted, category)
	}
}

func TestDecrypt_StickerSharesImageKeys(t *testing.T) {
	assert.Equal(t, KeyInfo("image"), KeyInfo("sticker"))
	assert.NotEqual(t, KeyInfo("image"), KeyInfo("video"))
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	key := randomKey(t)
	ciphertext, err := Encrypt([]byte("payload"), key, KeyInfo("image"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xFF
	_, err = Decrypt(ciphertext, key, KeyInfo("image"), nil)
	assert.ErrorIs(t, err, ErrMacMismatch)
}

func TestDecrypt_TamperedMac(t *testing.T) {
	key := randomKey(t)
	ciphertext, err := Encrypt([]byte("payload"), key, KeyInfo("image"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xFF
	_, err = Decrypt(ciphertext, key, KeyInfo("image"), nil)
	assert.ErrorIs(t, err, ErrMacMismatch)
}

func TestDecrypt_WrongCategoryInfo(t *testing.T) {
	key := randomKey(t)
	ciphertext, err := Encrypt([]byte("payload"), key, KeyInfo("image"))
	require.NoError(t, err)

	// Keys derived with a different info string must not verify.
	_, err = Decrypt(ciphertext, key, KeyInfo("video"), nil)
	assert.ErrorIs(t, err, ErrMacMismatch)
}

func TestDecrypt_TooShort(t *testing.T) {
	key := randomKey(t)
	_, err := Decrypt(make([]byte, 5), key, KeyInfo("image"), nil)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestDecrypt_InvalidKeySize(t *testing.T) {
	_, err := Decrypt(make([]byte, 64), make([]byte, 16), KeyInfo("image"), nil)
	assert.ErrorIs(t, err, ErrInvalidMediaKey)
}

func TestDecrypt_PlaintextHashVerified(t *testing.T) {
	key := randomKey(t)
	plaintext := []byte("payload")
	ciphertext, err := Encrypt(plaintext, key, KeyInfo("image"))
	require.NoError(t, err)

	good := sha256.Sum256(plaintext)
	_, err = Decrypt(ciphertext, key, KeyInfo("image"), good[:])
	assert.NoError(t, err)

	bad := sha256.Sum256([]byte("something else"))
	_, err = Decrypt(ciphertext, key, KeyInfo("image"), bad[:])
	assert.ErrorIs(t, err, ErrPlaintextHash)
}

func TestNormalizeKeyMaterial_Nil(t *testing.T) {
	out, err := NormalizeKeyMaterial(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestNormalizeKeyMaterial_Bytes(t *testing.T) {
	raw := []byte{1, 2, 3}
	out, err := NormalizeKeyMaterial(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestNormalizeKeyMaterial_Base64(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, MediaKeySize)

	out, err := NormalizeKeyMaterial(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, out)

	out, err = NormalizeKeyMaterial(base64.RawStdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestNormalizeKeyMaterial_NumberSlice(t *testing.T) {
	// JSON arrays arrive as []any of float64.
	out, err := NormalizeKeyMaterial([]any{float64(0), float64(128), float64(255)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 128, 255}, out)

	_, err = NormalizeKeyMaterial([]any{float64(300)})
	assert.Error(t, err)
}

func TestNormalizeKeyMaterial_IndexedObject(t *testing.T) {
	out, err := NormalizeKeyMaterial(map[string]any{
		"0": float64(10),
		"1": float64(20),
		"2": float64(30),
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30}, out)
}
