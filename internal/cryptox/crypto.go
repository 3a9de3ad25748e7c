package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/vcompra/cartsync/internal/common"
)

// KeySize is the AES-256 key length produced by DeriveUserKey and
// expected by EncryptPayload/DecryptPayload.
const KeySize = 32

// DeriveUserKey derives a per-account AES-256 key from the configured
// master secret and the account id, so that one leaked per-user key
// does not expose other accounts and the master secret never touches
// ciphertext directly.
func DeriveUserKey(masterSecret []byte, userID string) []byte {
	return argon2.IDKey(masterSecret, []byte(userID), 1, 64*1024, 4, KeySize)
}

// EncryptPayload serializes v to JSON and encrypts it with AES-GCM.
// A fresh random nonce is generated per call and prepended to the
// ciphertext, so the returned blob is self-contained.
func EncryptPayload(v any, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializing payload: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptPayload decrypts a blob produced by EncryptPayload and
// unmarshals the plaintext JSON into v. Corrupt or foreign ciphertext,
// a wrong key, or undecodable plaintext all yield common.ErrDecryption;
// garbage is never silently returned.
func DecryptPayload(blob, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	if len(blob) < aesgcm.NonceSize() {
		return fmt.Errorf("%w: blob shorter than nonce", common.ErrDecryption)
	}
	nonce, ciphertext := blob[:aesgcm.NonceSize()], blob[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return nil
}
