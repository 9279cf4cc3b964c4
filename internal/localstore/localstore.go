// Package localstore provides the device-local key-value store backed by
// SQLite. The database is opened lazily on first use. If opening the DB or
// executing queries fails, the store keeps working from memory.
package localstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

const (
	// KeyUser holds the cached signed-in user record.
	KeyUser = "healthassist_user"
	// KeyInsurancePlan holds the insurance plan preference.
	KeyInsurancePlan = "healthassist_insurance_plan"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("localstore: key not found")

// Store is a string key-value store.
type Store struct {
	path string

	mu     sync.Mutex
	memory map[string]string // in-memory fallback

	dbOnce  sync.Once
	db      *sql.DB
	initErr error
}

// Open returns a store persisting to the SQLite file at path. An empty path
// gives a memory-only store.
func Open(path string) *Store {
	return &Store{path: path, memory: make(map[string]string)}
}

// initDB lazily opens the SQLite database and creates the kv table if it doesn't exist.
func (s *Store) initDB() {
	if s.path == "" {
		s.initErr = errors.New("no path configured")
		return
	}
	db, err := sql.Open("sqlite", "file:"+s.path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory local store", "error", err)
		return
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME
	);`); err != nil {
		s.initErr = err
		_ = db.Close()
		logger.L.Warn("sqlite table creation failed; using in-memory local store", "error", err)
		return
	}
	s.db = db
	logger.L.Debug("sqlite local store initialized", "path", s.path)
}

func (s *Store) sqlite() *sql.DB {
	s.dbOnce.Do(s.initDB)
	if s.initErr != nil {
		return nil
	}
	return s.db
}

// Set stores value under key in SQLite when available and always keeps an
// in-memory copy as fallback.
func (s *Store) Set(key, value string) {
	if db := s.sqlite(); db != nil {
		_, err := db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
			key, value, time.Now().UTC())
		if err != nil {
			logger.L.Error("failed to store key in sqlite; falling back to memory", "key", key, "error", err)
		}
	}

	s.mu.Lock()
	s.memory[key] = value
	s.mu.Unlock()
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	if db := s.sqlite(); db != nil {
		var value string
		err := db.QueryRow(`SELECT value FROM kv WHERE key = ?;`, key).Scan(&value)
		switch {
		case err == nil:
			return value, nil
		case errors.Is(err, sql.ErrNoRows):
			// A failed Set may have left the value in memory only.
		default:
			logger.L.Warn("sqlite read failed; using memory", "key", key, "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.memory[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Delete removes key.
func (s *Store) Delete(key string) {
	if db := s.sqlite(); db != nil {
		if _, err := db.Exec(`DELETE FROM kv WHERE key = ?;`, key); err != nil {
			logger.L.Error("failed to delete key from sqlite", "key", key, "error", err)
		}
	}
	s.mu.Lock()
	delete(s.memory, key)
	s.mu.Unlock()
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetJSON stores v encoded as JSON.
func (s *Store) SetJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Set(key, string(b))
	return nil
}

// GetJSON decodes the value under key into v. A value that does not decode
// is removed, so a corrupt entry never sticks around.
func (s *Store) GetJSON(key string, v any) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logger.L.Warn("dropping undecodable local value", "key", key, "error", err)
		s.Delete(key)
		return ErrNotFound
	}
	return nil
}

// InsurancePlan returns the stored plan preference, if any.
func (s *Store) InsurancePlan() (models.InsurancePlan, bool) {
	var plan models.InsurancePlan
	if err := s.GetJSON(KeyInsurancePlan, &plan); err != nil {
		return models.InsurancePlan{}, false
	}
	return plan, plan.Carrier != ""
}

// SetInsurancePlan stores the plan preference; an empty carrier clears it.
func (s *Store) SetInsurancePlan(plan models.InsurancePlan) error {
	if plan.Carrier == "" {
		s.Delete(KeyInsurancePlan)
		return nil
	}
	return s.SetJSON(KeyInsurancePlan, plan)
}
