// Package persist keeps the client's local state on disk: the stable
// device id, the last submitted order, and an order saved while the window
// was closed. Every record is best effort. Failures are logged and the
// caller sees "absent"; nothing here ever blocks an order.
package persist

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/frietavond/bestel/internal/api"
)

const (
	recordVersion = 1

	userIDFile    = "user_id.json"
	lastOrderFile = "last_order.json"
	pendingFile   = "pending_order.json"

	userIDTTL    = 365 * 24 * time.Hour
	lastOrderTTL = 30 * 24 * time.Hour
)

// record is the on-disk envelope around every stored value. Expiry is
// checked on read, so stale files behave like deleted ones.
type record struct {
	Version   int             `json:"version"`
	SavedAt   time.Time       `json:"saved_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Store reads and writes records under one directory.
type Store struct {
	dir string
	now func() time.Time
}

// Open prepares the state directory. An empty dir means the OS user config
// dir plus "frietavond".
func Open(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "frietavond")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// UserID returns the stable device id, minting and storing a fresh one
// when none exists or the stored record is expired or unreadable.
func (s *Store) UserID() string {
	var id string
	if s.read(userIDFile, &id) && id != "" {
		return id
	}
	id = uuid.NewString()
	s.write(userIDFile, id, userIDTTL)
	return id
}

// SaveLastOrder remembers a successfully submitted order for pre-filling
// the next one.
func (s *Store) SaveLastOrder(p api.Payload) {
	s.write(lastOrderFile, p, lastOrderTTL)
}

// LastOrder returns the remembered order, if any is stored and fresh.
func (s *Store) LastOrder() (api.Payload, bool) {
	var p api.Payload
	if !s.read(lastOrderFile, &p) {
		return api.Payload{}, false
	}
	return p, true
}

// SavePending stores an order that could not be submitted because the
// window was closed. Pending orders do not expire; the window reopening is
// their deadline.
func (s *Store) SavePending(p api.Payload) {
	s.write(pendingFile, p, 0)
}

// Pending returns the order saved while closed, if any.
func (s *Store) Pending() (api.Payload, bool) {
	var p api.Payload
	if !s.read(pendingFile, &p) {
		return api.Payload{}, false
	}
	return p, true
}

// ClearPending drops the saved pending order.
func (s *Store) ClearPending() {
	if err := os.Remove(filepath.Join(s.dir, pendingFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("persist: clear %s: %v", pendingFile, err)
	}
}

// write stores v in a versioned envelope. ttl zero means no expiry.
func (s *Store) write(name string, v any, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("persist: encode %s: %v", name, err)
		return
	}
	rec := record{
		Version: recordVersion,
		SavedAt: s.now(),
		Payload: payload,
	}
	if ttl > 0 {
		rec.ExpiresAt = rec.SavedAt.Add(ttl)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("persist: encode %s: %v", name, err)
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o600); err != nil {
		log.Printf("persist: write %s: %v", name, err)
	}
}

// read loads a record into v. Returns false for absent, corrupt, expired,
// or version-mismatched records; only unexpected failures are logged.
func (s *Store) read(name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("persist: read %s: %v", name, err)
		}
		return false
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("persist: decode %s: %v", name, err)
		return false
	}
	if rec.Version != recordVersion {
		return false
	}
	if !rec.ExpiresAt.IsZero() && !rec.ExpiresAt.After(s.now()) {
		return false
	}
	if err := json.Unmarshal(rec.Payload, v); err != nil {
		log.Printf("persist: decode %s payload: %v", name, err)
		return false
	}
	return true
}
