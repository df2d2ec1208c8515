package ilpcrypto

import (
	cryptorand "crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrInvalidPayload is returned by Decrypt when the ciphertext cannot be
// authenticated under the shared secret, or is too short to contain a
// nonce. The connection maps this to an F02 Reject.
var ErrInvalidPayload = errors.New("ilpcrypto: stream packet failed to decrypt")

const (
	keySize   = 32
	nonceSize = 24
)

var encryptionKeyInfo = []byte("ilp_stream_encryption")

// deriveEncryptionKey derives the STREAM payload encryption key from the
// shared secret via HKDF-SHA256.
func deriveEncryptionKey(sharedSecret []byte) *[keySize]byte {
	kdf := hkdf.New(sha256.New, sharedSecret, nil, encryptionKeyInfo)
	var key [keySize]byte
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		panic(err)
	}
	return &key
}

// Encrypt seals plaintext (a CBOR-encoded STREAM packet) under a key
// derived from sharedSecret, prefixing a fresh random nonce to the
// ciphertext.
func Encrypt(sharedSecret, plaintext []byte) ([]byte, error) {
	key := deriveEncryptionKey(sharedSecret)

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(cryptorand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	sealed := secretbox.Seal(nil, plaintext, &nonce, key)
	out := make([]byte, 0, nonceSize+len(sealed))
	out = append(out, nonce[:]...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens a payload produced by Encrypt. It returns ErrInvalidPayload
// on any authentication failure or truncated input — the connection never
// distinguishes the reasons, it just rejects with F02.
func Decrypt(sharedSecret, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidPayload
	}
	key := deriveEncryptionKey(sharedSecret)

	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrInvalidPayload
	}
	return plaintext, nil
}
