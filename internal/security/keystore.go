package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/argon2"
)

const (
	keyringService = "llmbridge"
	vaultFile      = "credentials.enc"

	argonTime    = 3
	argonMemory  = 64 * 1024 // 64MB
	argonThreads = 4
	argonKeyLen  = 32 // AES-256
	saltLen      = 16
)

// KeyStore holds stored default provider credentials, the lowest tier
// of the resolution precedence chain.
// Primary: OS keychain. Fallback: encrypted vault file.
type KeyStore struct {
	encryptionKey []byte // derived from master password; nil = keyring only
	vaultPath     string
}

// NewKeyStore creates a key store rooted in the user's home directory.
func NewKeyStore(masterKey []byte) (*KeyStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".llmbridge")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return NewKeyStoreAt(dir, masterKey), nil
}

// NewKeyStoreAt creates a key store with an explicit vault directory.
func NewKeyStoreAt(dir string, masterKey []byte) *KeyStore {
	return &KeyStore{
		encryptionKey: masterKey,
		vaultPath:     filepath.Join(dir, vaultFile),
	}
}

// DeriveMasterKey derives the vault AES key from a password using Argon2id.
func DeriveMasterKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// GenerateSalt creates a random salt for key derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Set stores a provider credential (keyring first, vault fallback).
func (ks *KeyStore) Set(providerID, value string) error {
	if err := keyring.Set(keyringService, providerID, value); err == nil {
		return nil
	}
	return ks.setInVault(providerID, value)
}

// Get retrieves a stored provider credential. The boolean reports
// presence; an empty stored value still counts as present.
func (ks *KeyStore) Get(providerID string) (string, bool) {
	if val, err := keyring.Get(keyringService, providerID); err == nil {
		return val, true
	}
	vault, err := ks.loadVault()
	if err != nil {
		return "", false
	}
	val, ok := vault[providerID]
	return val, ok
}

// Delete removes a stored provider credential from both backends.
func (ks *KeyStore) Delete(providerID string) error {
	_ = keyring.Delete(keyringService, providerID)
	vault, err := ks.loadVault()
	if err != nil {
		return nil
	}
	delete(vault, providerID)
	return ks.saveVault(vault)
}

// Vault operations (AES-256-GCM encrypted JSON file).

func (ks *KeyStore) loadVault() (map[string]string, error) {
	data, err := os.ReadFile(ks.vaultPath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	plaintext, err := ks.openVault(string(data))
	if err != nil {
		return nil, fmt.Errorf("decrypt vault: %w", err)
	}

	var vault map[string]string
	if err := json.Unmarshal(plaintext, &vault); err != nil {
		return nil, fmt.Errorf("parse vault: %w", err)
	}
	return vault, nil
}

func (ks *KeyStore) saveVault(vault map[string]string) error {
	data, err := json.Marshal(vault)
	if err != nil {
		return err
	}
	encrypted, err := ks.sealVault(data)
	if err != nil {
		return err
	}
	return os.WriteFile(ks.vaultPath, []byte(encrypted), 0600)
}

func (ks *KeyStore) setInVault(providerID, value string) error {
	vault, err := ks.loadVault()
	if err != nil {
		vault = make(map[string]string)
	}
	vault[providerID] = value
	return ks.saveVault(vault)
}

// sealVault encrypts plaintext with AES-256-GCM and returns base64
// ciphertext with the nonce prepended.
func (ks *KeyStore) sealVault(plaintext []byte) (string, error) {
	gcm, err := ks.vaultCipher()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (ks *KeyStore) openVault(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	gcm, err := ks.vaultCipher()
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func (ks *KeyStore) vaultCipher() (cipher.AEAD, error) {
	if ks.encryptionKey == nil {
		return nil, fmt.Errorf("no encryption key set")
	}
	block, err := aes.NewCipher(ks.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
