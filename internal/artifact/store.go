package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const metadataKey = "_procflow"

// Store manages record IO rooted at a run directory.
type Store struct {
	root string
	now  func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for metadata timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewStore builds a store rooted at dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	store := &Store{
		root: filepath.Clean(dir),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Root returns the directory the store writes under.
func (s *Store) Root() string {
	return s.root
}

// TaskInputPath returns the relative path of a task's input record.
func TaskInputPath(effectID string) string {
	return filepath.Join("tasks", effectID, "input.json")
}

// TaskResultPath returns the relative path of a task's result record.
func TaskResultPath(effectID string) string {
	return filepath.Join("tasks", effectID, "result.json")
}

func (s *Store) resolve(rel string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(rel))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("artifact: empty record path")
	}
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("artifact: record path %s escapes the store", rel)
	}
	return filepath.Join(s.root, clean), nil
}

// Check inspects a record on disk and returns its state and metadata.
// A missing record is not an error.
func (s *Store) Check(rel string, kind Kind) (CheckResult, error) {
	res := CheckResult{Path: rel, Kind: kind}
	path, err := s.resolve(rel)
	if err != nil {
		return res.fail(StateError, err)
	}
	res.Path = path
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.State = StateMissing
		return res, nil
	case err != nil:
		return res.fail(StateError, err)
	case info.IsDir():
		return res.fail(StateInvalid, fmt.Errorf("artifact: %s is a directory", rel))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return res.fail(StateError, err)
	}
	var meta Metadata
	if kind == KindJSON {
		meta, err = parseJSONMetadata(data)
	} else {
		meta, _, err = ParseFrontMatter(data)
	}
	if err != nil {
		return res.fail(StateInvalid, err)
	}
	res.State = StateReady
	res.Metadata = &meta
	return res, nil
}

// WriteJSON stores an object payload plus a metadata block.
func (s *Store) WriteJSON(rel string, payload any, meta Metadata) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("artifact: encode %s: %w", rel, err)
	}
	var object map[string]any
	if err := json.Unmarshal(body, &object); err != nil || object == nil {
		return fmt.Errorf("artifact: %s payload must be a JSON object", rel)
	}
	prepared := meta.WithDefaults(rel, s.now())
	if prepared.Checksum == "" {
		prepared.Checksum = checksum(body)
	}
	if err := prepared.Validate(); err != nil {
		return err
	}
	object[metadataKey] = prepared
	encoded, err := json.MarshalIndent(object, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode json for %s: %w", rel, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(encoded, '\n'), 0o644)
}

// ReadJSON loads an object record. The metadata block is stripped from the
// payload and returned separately; records written by an external runtime may
// carry no metadata, in which case the returned metadata is nil.
func (s *Store) ReadJSON(rel string) (map[string]any, *Metadata, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, fmt.Errorf("artifact: parse %s: %w", rel, err)
	}
	if payload == nil {
		return nil, nil, fmt.Errorf("artifact: %s is not a JSON object", rel)
	}
	if _, ok := payload[metadataKey]; !ok {
		return payload, nil, nil
	}
	delete(payload, metadataKey)
	meta, err := parseJSONMetadata(data)
	if err != nil {
		return payload, nil, nil
	}
	return payload, &meta, nil
}

// WriteDocument renders body with a YAML front matter block.
func (s *Store) WriteDocument(rel string, body []byte, meta Metadata) error {
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if body == nil {
		body = []byte{}
	}
	prepared := meta.WithDefaults(rel, s.now())
	if prepared.Checksum == "" {
		prepared.Checksum = checksum(body)
	}
	if err := prepared.Validate(); err != nil {
		return err
	}
	content, err := WriteFrontMatter(prepared, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func (r CheckResult) fail(state State, err error) (CheckResult, error) {
	r.State = state
	r.Err = err
	return r, err
}

type jsonEnvelope struct {
	Meta *Metadata `json:"_procflow"`
}

func parseJSONMetadata(data []byte) (Metadata, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Metadata{}, fmt.Errorf("artifact: parse json metadata: %w", err)
	}
	if env.Meta == nil {
		return Metadata{}, fmt.Errorf("artifact: missing %s metadata", metadataKey)
	}
	if err := env.Meta.checkStored(); err != nil {
		return Metadata{}, err
	}
	meta := *env.Meta
	meta.CreatedAt = meta.CreatedAt.UTC()
	return meta, nil
}
