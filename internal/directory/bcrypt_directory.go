package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// BcryptDirectory is the reference Directory implementation. It stores, per
// enrolled key, a key id (used for O(1) lookup, mirrored in the issued
// token as "<keyID>.<secret>") and a bcrypt hash of the secret half — the
// same approach the teacher's AuthService.CheckPassword uses for the
// dashboard login password, applied here to per-controller API keys instead
// of a single shared password.
type BcryptDirectory struct {
	mu      sync.RWMutex
	records map[string]record // keyID -> record
	banned  map[string]bool   // userID -> banned
}

type record struct {
	userID     string
	secretHash []byte
}

// NewBcryptDirectory returns an empty BcryptDirectory.
func NewBcryptDirectory() *BcryptDirectory {
	return &BcryptDirectory{
		records: make(map[string]record),
		banned:  make(map[string]bool),
	}
}

// Enroll registers keyID/secret as an API key for userID. It returns only
// an error; the client presents the key as apiKey in the form
// "<keyID>.<secret>".
func (d *BcryptDirectory) Enroll(userID, keyID, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("directory: hash secret: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[keyID] = record{userID: userID, secretHash: hash}
	return nil
}

// SetBanned marks a user id as banned/unbanned.
func (d *BcryptDirectory) SetBanned(userID string, banned bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if banned {
		d.banned[userID] = true
	} else {
		delete(d.banned, userID)
	}
}

func (d *BcryptDirectory) ResolveAPIKey(_ context.Context, apiKey string) (string, error) {
	keyID, secret, ok := strings.Cut(apiKey, ".")
	if !ok {
		return "", ErrKeyNotFound
	}

	d.mu.RLock()
	rec, ok := d.records[keyID]
	d.mu.RUnlock()
	if !ok {
		return "", ErrKeyNotFound
	}

	if err := bcrypt.CompareHashAndPassword(rec.secretHash, []byte(secret)); err != nil {
		return "", ErrKeyNotFound
	}
	return rec.userID, nil
}

func (d *BcryptDirectory) Banned(_ context.Context, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.banned[userID], nil
}
