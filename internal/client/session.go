package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// SessionData is what a session persists between runs.
type SessionData struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ShopID       string `json:"shopId,omitempty"`
}

// Session holds the tokens and the selected shop. With a path it is
// written to disk on every change.
type Session struct {
	mu         sync.Mutex
	data       SessionData
	path       string
	redirected bool // set once the expiry redirect has fired
}

// NewSession returns an in-memory session.
func NewSession() *Session {
	return &Session{}
}

// OpenSession loads the session file at path; a missing file yields an
// empty session that will be created on first save.
func OpenSession(path string) (*Session, error) {
	s := &Session{path: path}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.RefreshToken
}

func (s *Session) ShopID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ShopID
}

// Snapshot returns a copy of the stored values.
func (s *Session) Snapshot() SessionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// SetTokens stores a fresh token pair. It re-arms the expiry redirect.
func (s *Session) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AccessToken = access
	if refresh != "" {
		s.data.RefreshToken = refresh
	}
	s.redirected = false
	return s.saveLocked()
}

// SetShop selects the shop used by shop-scoped calls.
func (s *Session) SetShop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ShopID = id
	return s.saveLocked()
}

// Clear drops the tokens. The selected shop is kept.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AccessToken = ""
	s.data.RefreshToken = ""
	return s.saveLocked()
}

// expire clears the tokens and reports whether this is the first expiry
// since the last sign-in.
func (s *Session) expire() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := !s.redirected
	s.redirected = true
	s.data.AccessToken = ""
	s.data.RefreshToken = ""
	return first, s.saveLocked()
}

func (s *Session) saveLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}
