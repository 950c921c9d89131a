package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/ports"
)

// envelopeKey is the Vars entry carrying the sealed snapshot payload.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for sealing and opening snapshots.
type EncryptionConfig struct {
	// ActiveKey is used for encrypting new saves. Must be 32 bytes
	// (AES-256).
	ActiveKey []byte

	// FallbackKeys are old keys tried when decryption with ActiveKey
	// fails. This enables zero-downtime key rotation: old saves stay
	// readable, new saves are sealed with the active key.
	FallbackKeys [][]byte
}

// DeriveKey stretches a passphrase into a 32-byte AES-256 key.
func DeriveKey(passphrase string) []byte {
	sum := sha256.Sum256([]byte(passphrase))
	return sum[:]
}

type encryptionMiddleware struct {
	next   ports.SlotStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals snapshots with
// AES-GCM before they reach the backend. The stored record keeps only the
// slot, project id and timestamp in the clear; scene position, variables and
// history travel inside the envelope.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SlotStore) ports.SlotStore {
		return &encryptionMiddleware{next: next, config: config}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	plaintext, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	ciphertext, err := encrypt(plaintext, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}

	// The envelope keeps just enough metadata in the clear for slot
	// listings; everything the player actually did is inside the seal.
	envelope := &domain.Snapshot{
		Slot:      snap.Slot,
		ProjectID: snap.ProjectID,
		SavedAt:   snap.SavedAt,
		Vars: map[string]any{
			envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
		},
	}

	return m.next.Save(ctx, projectID, slot, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	envelope, err := m.next.Load(ctx, projectID, slot)
	if err != nil {
		return nil, err
	}

	sealed, ok := envelope.Vars[envelopeKey].(string)
	if !ok {
		// A plain snapshot under an encrypting store means the key was
		// enabled after saves already existed. Fail closed rather than
		// hand back a record we cannot vouch for.
		return nil, errors.New("snapshot is missing its encrypted envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decode envelope base64: %w", err)
	}

	plaintext, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("decrypt snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal decrypted snapshot: %w", err)
	}
	return &snap, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, projectID string, slot int) error {
	return m.next.Delete(ctx, projectID, slot)
}

func (m *encryptionMiddleware) List(ctx context.Context, projectID string) ([]int, error) {
	return m.next.List(ctx, projectID)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
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
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
