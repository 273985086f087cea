package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSessionFile is the session file of the working directory
const DefaultSessionFile = ".tartalacrm_config"

// ErrNoSession is returned when no token was stored by a login
var ErrNoSession = errors.New("no stored session")

// Session is the local file that keeps the bearer token between commands
type Session struct {
	path string
}

type sessionFile struct {
	Token string `yaml:"token"`
}

// NewSession returns the session stored at path
func NewSession(path string) *Session {
	return &Session{path: path}
}

// Path returns the location of the session file
func (s *Session) Path() string {
	return s.path
}

// Load returns the stored token, or ErrNoSession
func (s *Session) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}

	var f sessionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		// A file holding the bare token is still usable.
		f.Token = string(data)
	}
	token := strings.TrimSpace(f.Token)
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Save stores token, replacing any previous one
func (s *Session) Save(token string) error {
	data, err := yaml.Marshal(sessionFile{Token: token})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Remove deletes the session file. It reports whether there was one.
func (s *Session) Remove() (bool, error) {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove session file: %w", err)
	}
	return true, nil
}
