package filerepo

import (
	"bytes"
	"crypto/rand"

	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed file layout: magic | salt | nonce | ciphertext.
var sealMagic = []byte("ISv1")

const (
	saltLength    = 16
	argonTime     = 1
	argonMemoryKB = 19 * 1024
	argonThreads  = 1
)

func isSealed(data []byte) bool {
	return bytes.HasPrefix(data, sealMagic)
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemoryKB, argonThreads, chacha20poly1305.KeySize)
}

func seal(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "[filerepo.seal] salt")
	}
	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, errors.Wrap(err, "[filerepo.seal] cipher")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "[filerepo.seal] nonce")
	}

	out := make([]byte, 0, len(sealMagic)+len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte(sessions.StorageKey)), nil
}

func open(data []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.Wrap(apperrors.ErrSessionCorrupt, "session file is sealed and no passphrase is configured")
	}
	body := data[len(sealMagic):]
	if len(body) < saltLength+chacha20poly1305.NonceSizeX {
		return nil, errors.Wrap(apperrors.ErrSessionCorrupt, "sealed session truncated")
	}
	salt, body := body[:saltLength], body[saltLength:]
	nonce, ciphertext := body[:chacha20poly1305.NonceSizeX], body[chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, errors.Wrap(err, "[filerepo.open] cipher")
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(sessions.StorageKey))
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrSessionCorrupt, "sealed session cannot be opened")
	}
	return plaintext, nil
}
