// Package jsonfile persists bridge state as single JSON object files,
// rewritten in full on every mutation. A missing or corrupt file is treated
// as an empty store with a warning, never an error: losing remembered
// decisions or issued tokens is recoverable, crashing the bridge is not.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/store"
)

const (
	tokensFileName    = "bridge_tokens.json"
	decisionsFileName = "approval_store.json"
)

// Store is the jsonfile driver for store.Store.
type Store struct {
	tokens    *tokensRepo
	decisions *decisionsRepo
}

var _ store.Store = (*Store)(nil)

// NewStore loads (or initializes) the backing files under dir.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &Store{
		tokens:    newTokensRepo(filepath.Join(dir, tokensFileName), logger),
		decisions: newDecisionsRepo(filepath.Join(dir, decisionsFileName), logger),
	}
	return s, nil
}

func (s *Store) Tokens() store.Tokens       { return s.tokens }
func (s *Store) Decisions() store.Decisions { return s.decisions }

func (s *Store) Close() error { return nil }

// loadJSONFile reads path into out. Absent files leave out untouched; corrupt
// files are logged and likewise treated as empty.
func loadJSONFile(path string, out any, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read state file, starting empty", "path", path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("state file is corrupt, starting empty", "path", path, "error", err)
	}
}

// saveJSONFile rewrites path with v in full, via a temp file so a crash
// mid-write never leaves a truncated store behind.
func saveJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
