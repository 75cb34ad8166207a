// Package userconfig implements C8: a file-backed JSON record with a
// defaults overlay. Load is a total function — no file, an empty file,
// and malformed JSON all collapse to defaults, never an error.
package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the single user-configuration record.
type Config struct {
	Slippage float64 `json:"slippage"`
}

// Defaults returns a fresh copy of the default configuration.
func Defaults() Config {
	return Config{Slippage: 1.0}
}

// Store loads and saves Config at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns Defaults() if the file is missing, empty, or malformed.
// Unknown keys in the file are ignored; recognized keys overlay the
// defaults.
func (s *Store) Load() Config {
	cfg := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return cfg
	}
	if len(data) == 0 {
		return cfg
	}

	var onDisk map[string]json.RawMessage
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return Defaults()
	}

	if raw, ok := onDisk["slippage"]; ok {
		var slippage float64
		if err := json.Unmarshal(raw, &slippage); err == nil {
			cfg.Slippage = slippage
		}
	}

	return cfg
}

// Save writes cfg as the complete, pretty-printed on-disk record — it
// is not an overlay. Callers that want to change a single field must
// Load, mutate the copy, and Save the full result back (SetSlippage
// does exactly this). The directory is created if necessary;
// truncate-then-write is acceptable since this store has no concurrent
// writers (§4.8).
func (s *Store) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("userconfig: ensure dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("userconfig: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("userconfig: write: %w", err)
	}
	return nil
}

// SetSlippage is the narrow mutation `config set slippage` performs.
// value is written verbatim, including 0 — a deliberately flat
// slippage tolerance is a legitimate user choice, not "unset".
func (s *Store) SetSlippage(value float64) error {
	cfg := s.Load()
	cfg.Slippage = value
	return s.Save(cfg)
}
