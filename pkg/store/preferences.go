package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/knob-agent/pkg/file"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// FormatVersion is written into every persisted namespace file.
const FormatVersion = "1.0.0"

// supportedFormats is the range of persisted formats this build can read.
const supportedFormats = "^1"

// ErrIncompatibleFormat is returned when a namespace file was written by an unsupported format.
var ErrIncompatibleFormat = errors.New("incompatible preferences format")

// Preferences is a durable string key/value namespace.
type Preferences interface {
	GetString(key, def string) string
	PutString(key, value string) error
	Clear() error
	Namespace() string
}

// document is the on-disk layout of a namespace.
type document struct {
	FormatVersion string            `json:"format_version"`
	Values        map[string]string `json:"values"`
}

// FilePreferences keeps a namespace in memory and writes every mutation through to a JSON file.
type FilePreferences struct {
	namespace  string
	path       string
	fileClient file.FileOperations
	values     cmap.ConcurrentMap[string, string]
	logger     zerolog.Logger

	// mu serialises writers so the file always reflects a complete snapshot.
	mu sync.Mutex
}

// Open loads <dir>/<namespace>.json, creating the directory when needed.
// A missing file is an empty namespace.
func Open(dir, namespace string, fileClient file.FileOperations, logger zerolog.Logger) (*FilePreferences, error) {
	if namespace == "" {
		return nil, errors.New("preferences namespace must not be empty")
	}
	if err := fileClient.EnsureDir(dir); err != nil {
		return nil, err
	}

	p := &FilePreferences{
		namespace:  namespace,
		path:       filepath.Join(dir, namespace+".json"),
		fileClient: fileClient,
		values:     cmap.New[string](),
		logger:     logger.With().Str("component", "preferences").Str("namespace", namespace).Logger(),
	}

	exists, err := fileClient.IsFileExists(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat preferences file: %w", err)
	}
	if !exists {
		p.logger.Info().Str("path", p.path).Msg("No stored preferences, starting empty")
		return p, nil
	}

	var doc document
	if err := fileClient.ReadJsonFile(p.path, &doc); err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}
	if err := checkFormat(doc.FormatVersion); err != nil {
		return nil, err
	}
	p.values.MSet(doc.Values)

	p.logger.Info().Int("keys", p.values.Count()).Msg("Preferences loaded")
	return p, nil
}

func checkFormat(version string) error {
	if version == "" {
		return fmt.Errorf("%w: missing format_version", ErrIncompatibleFormat)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleFormat, err)
	}
	constraint, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleFormat, v, supportedFormats)
	}
	return nil
}

// Namespace returns the store name.
func (p *FilePreferences) Namespace() string {
	return p.namespace
}

// Path returns the file backing this namespace.
func (p *FilePreferences) Path() string {
	return p.path
}

// GetString returns the stored value or def when the key is absent.
func (p *FilePreferences) GetString(key, def string) string {
	if v, ok := p.values.Get(key); ok {
		return v
	}
	return def
}

// PutString stores value under key and persists the namespace.
func (p *FilePreferences) PutString(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.values.Set(key, value)
	if err := p.flush(); err != nil {
		p.logger.Error().Err(err).Str("key", key).Msg("Failed to persist preference")
		return err
	}
	p.logger.Debug().Str("key", key).Msg("Preference stored")
	return nil
}

// Clear removes every key from the namespace and persists the empty namespace.
func (p *FilePreferences) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.values.Clear()
	if err := p.flush(); err != nil {
		p.logger.Error().Err(err).Msg("Failed to persist cleared preferences")
		return err
	}
	p.logger.Warn().Msg("Preferences cleared")
	return nil
}

func (p *FilePreferences) flush() error {
	doc := document{
		FormatVersion: FormatVersion,
		Values:        p.values.Items(),
	}
	if err := p.fileClient.WriteJsonFile(p.path, doc); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	return nil
}
