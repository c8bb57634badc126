package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
	"github.com/TheMarco/sora-renderer/internal/storage"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12

	keystoreKey = "vault/app-secret.key"
)

// Keystore persists the process-wide symmetric key, separate from any
// ciphertext it produces.
type Keystore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, key []byte) error
	Delete(ctx context.Context) error
}

// FileKeystore keeps the key in an owner-only file inside the local storage
// root.
type FileKeystore struct {
	store *storage.FileStore
}

// NewFileKeystore wraps a FileStore as a Keystore.
func NewFileKeystore(store *storage.FileStore) *FileKeystore {
	return &FileKeystore{store: store}
}

func (k *FileKeystore) Load(ctx context.Context) ([]byte, error) {
	data, err := k.store.Read(ctx, keystoreKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("vault: load key: %w", err)
	}
	return data, nil
}

func (k *FileKeystore) Save(ctx context.Context, key []byte) error {
	if _, err := k.store.WriteSecret(ctx, keystoreKey, key); err != nil {
		return fmt.Errorf("vault: save key: %w", err)
	}
	return nil
}

func (k *FileKeystore) Delete(ctx context.Context) error {
	return k.store.Remove(ctx, keystoreKey)
}

// Vault encrypts and decrypts the one stored API secret with AES-256-GCM.
// The key is generated lazily on first use and persisted via the keystore;
// each ciphertext embeds a fresh random nonce so decryption is self-contained.
type Vault struct {
	mu       sync.Mutex
	keystore Keystore
	logger   infra.Logger
}

// New constructs a Vault over the given keystore.
func New(keystore Keystore, logger infra.Logger) *Vault {
	return &Vault{keystore: keystore, logger: logger}
}

// Encrypt seals plaintext under the process-wide key, generating the key if
// this is the first encryption.
func (v *Vault) Encrypt(ctx context.Context, plaintext string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := v.keystore.Load(ctx)
	if errors.Is(err, os.ErrNotExist) {
		key = make([]byte, keySize)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("vault: generate key: %w", err)
		}
		if err := v.keystore.Save(ctx, key); err != nil {
			return nil, err
		}
		v.logger.Info().Msg("vault: generated new app secret")
	} else if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("vault: generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt. A missing key or a
// malformed/tampered ciphertext yields domain.ErrCredentialDecrypt.
func (v *Vault) Decrypt(ctx context.Context, ciphertext []byte) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := v.keystore.Load(ctx)
	if errors.Is(err, os.ErrNotExist) {
		return "", domain.ErrCredentialDecrypt
	}
	if err != nil {
		return "", err
	}
	if len(ciphertext) < nonceSize {
		return "", domain.ErrCredentialDecrypt
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return "", domain.ErrCredentialDecrypt
	}
	return string(plaintext), nil
}

// Wipe deletes the key. Any ciphertext previously produced becomes
// permanently unrecoverable; that is the intent of a full reset.
func (v *Vault) Wipe(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.keystore.Delete(ctx); err != nil {
		return err
	}
	v.logger.Info().Msg("vault: app secret wiped")
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm init: %w", err)
	}
	return gcm, nil
}
