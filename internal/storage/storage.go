package storage

import (
	"encoding/json"
	"fmt"

	"server-warden/datastore"
	"server-warden/internal/storagetypes"
)

const stateKey = "warden:state"

// Storage persists user records and the warden snapshot through the
// file-backed datastore. Records are JSON values keyed by user ID;
// every read round-trips through JSON so callers always get a typed
// copy, never a shared reference.
type Storage struct {
	ds *datastore.DataStore
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

func userKey(id string) string {
	return "user:" + id
}

// GetUser returns the record for id, or nil if none exists.
func (s *Storage) GetUser(id string) (*storagetypes.User, error) {
	data, exists := s.ds.Get(userKey(id))
	if !exists {
		return nil, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling data: %w", err)
	}

	var user storagetypes.User
	if err := json.Unmarshal(jsonData, &user); err != nil {
		return nil, fmt.Errorf("error unmarshalling to *User: %w", err)
	}
	return &user, nil
}

// CreateUser stores a new record unless one already exists, in which
// case the existing record is returned untouched.
func (s *Storage) CreateUser(u storagetypes.User) (*storagetypes.User, error) {
	if u.UserID == "" {
		return nil, fmt.Errorf("user record missing id")
	}

	existing, err := s.GetUser(u.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	s.ds.Add(userKey(u.UserID), u)
	return &u, nil
}

// UpdateUser overwrites the stored record for u.UserID.
func (s *Storage) UpdateUser(u *storagetypes.User) error {
	if u == nil || u.UserID == "" {
		return fmt.Errorf("user record missing id")
	}
	s.ds.Add(userKey(u.UserID), u)
	return nil
}

// LoadState reads the persisted warden snapshot, or nil if none was
// ever written.
func (s *Storage) LoadState() (*storagetypes.WardenState, error) {
	data, exists := s.ds.Get(stateKey)
	if !exists {
		return nil, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling data: %w", err)
	}

	var state storagetypes.WardenState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return nil, fmt.Errorf("error unmarshalling to *WardenState: %w", err)
	}
	return &state, nil
}

// SaveState overwrites the persisted warden snapshot.
func (s *Storage) SaveState(state *storagetypes.WardenState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	s.ds.Add(stateKey, state)
	return nil
}
