package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	masterKeyOnce sync.Once
	masterKey     []byte
	masterKeyPath string
)

// SetMasterKeyPath configures where the master encryption key is read from.
// Must be called before the first encrypt/decrypt operation. When unset, the
// key falls back to the GATEHOUSE_MASTER_KEY environment variable, and
// finally to an ephemeral key (persisted signing keys then do not survive a
// restart, which is fine for development).
func SetMasterKeyPath(path string) {
	masterKeyPath = path
}

func loadMasterKey() ([]byte, error) {
	var material []byte

	switch {
	case masterKeyPath != "":
		data, err := os.ReadFile(masterKeyPath)
		if err != nil {
			return nil, fmt.Errorf("cryptox: failed to read master key file: %w", err)
		}
		material = data
	case os.Getenv("GATEHOUSE_MASTER_KEY") != "":
		material = []byte(os.Getenv("GATEHOUSE_MASTER_KEY"))
	default:
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("cryptox: failed to generate ephemeral master key: %w", err)
		}
	}

	// Derive a proper 32-byte AES-256 key from whatever material we got.
	sum := sha256.Sum256(material)
	return sum[:], nil
}

func getMasterKey() ([]byte, error) {
	var err error
	masterKeyOnce.Do(func() {
		masterKey, err = loadMasterKey()
	})
	if err != nil {
		return nil, err
	}
	if masterKey == nil {
		return nil, errors.New("cryptox: master key unavailable")
	}
	return masterKey, nil
}

// EncryptPrivateKey encrypts PEM-encoded private key material with
// AES-256-GCM. Output layout: [12-byte nonce][ciphertext+tag].
func EncryptPrivateKey(pemData []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, pemData, nil), nil
}

// DecryptPrivateKey reverses EncryptPrivateKey.
func DecryptPrivateKey(encrypted []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(encrypted) < gcm.NonceSize() {
		return nil, errors.New("cryptox: encrypted data too short")
	}

	nonce, ciphertext := encrypted[:gcm.NonceSize()], encrypted[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decrypt failed: %w", err)
	}
	return plain, nil
}
