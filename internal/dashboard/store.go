package dashboard

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/models"
	"github.com/homedash/homedash/internal/style"
)

// Store persists the configuration document as one JSON file. The document
// is saved verbatim, only its JSON validity and widget shape are checked.
type Store struct {
	path string

	mu sync.Mutex

	pr *log.Logger
}

// NewStore creates a file store at the given path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		pr:   models.Printer.WithPrefix(style.DashStyle.Render("config")),
	}
}

// Raw returns the stored document, or the serialized default when no
// document exists yet.
func (s *Store) Raw() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return json.MarshalIndent(Default(), "", "  ")
	} else if err != nil {
		return nil, err
	}

	return raw, nil
}

// Load returns the decoded configuration, falling back to the default when
// no document exists or the stored one does not parse.
func (s *Store) Load() *Config {
	raw, err := s.Raw()
	if err != nil {
		s.pr.Warnf("%s reading config failed, using defaults: %v", icons.Disk, err)

		return Default()
	}

	cfg, err := Decode(raw)
	if err != nil {
		s.pr.Warnf("%s stored config does not parse, using defaults: %v", icons.Disk, err)

		return Default()
	}

	return cfg
}

// Save validates and writes a new document, returning the decoded view.
// The write is atomic (tmp file + rename).
func (s *Store) Save(raw []byte) (*Config, error) {
	cfg, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return nil, err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return nil, err
	}

	s.pr.Infof("%s saved config with %d widgets", icons.Disk, len(cfg.Widgets))

	return cfg, nil
}
