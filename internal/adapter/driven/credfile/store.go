// Package credfile implements the CredentialStore port on a local JSON file.
package credfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Store)(nil)

// Store reads and writes the credential as a whole JSON object at a fixed
// path. Writes go through an atomic rename so a crash mid-write can never
// leave a torn file.
type Store struct {
	path string
}

// NewStore creates a Store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the credential file. Returns (nil, nil) when the file does not
// exist yet.
func (s *Store) Load(_ context.Context) (*model.Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file %s: %w", s.path, err)
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parse credential file %s: %w", s.path, err)
	}
	return &cred, nil
}

// Save replaces the credential file with the given credential.
func (s *Store) Save(_ context.Context, cred model.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write credential file %s: %w", s.path, err)
	}
	return nil
}
