package store

import (
	"bytes"
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

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	yaml "gopkg.in/yaml.v3"
)

const (
	defaultDataFile   = "framer.json"
	dataFileKey       = "dataFile"
	dataFileFormatKey = "dataFileFormat"
	defaultDataFormat = "json"
	formatJSON        = "json"
	formatYAML        = "yaml"
	formatTOML        = "toml"
	checksumSuffix    = ".checksum"
	schemaVersion     = "1.0.0"
)

// FileSnapshotStore implements SnapshotStore on a single data file with a
// checksum sidecar for integrity and flock-based locking for cross-process
// safety.
type FileSnapshotStore struct {
	filePath string
	format   string
	flk      *flock.Flock
}

// NewFileSnapshotStore creates a store. Initialize must be called before use.
func NewFileSnapshotStore() *FileSnapshotStore {
	return &FileSnapshotStore{}
}

var _ SnapshotStore = (*FileSnapshotStore)(nil)

// Initialize configures the file path and format and establishes the lock.
func (s *FileSnapshotStore) Initialize(config map[string]string) error {
	if val, ok := config[dataFileKey]; ok && val != "" {
		s.filePath = val
	} else {
		s.filePath = defaultDataFile
	}

	if val, ok := config[dataFileFormatKey]; ok && val != "" {
		format := strings.ToLower(val)
		switch format {
		case formatJSON, formatYAML, formatTOML:
			s.format = format
		default:
			return fmt.Errorf("unsupported dataFileFormat: %s (supported: json, yaml, toml)", val)
		}
	} else {
		s.format = defaultDataFormat
	}

	// Align the default filename's extension with a non-default format.
	if s.filePath == defaultDataFile && s.format != formatJSON {
		ext := filepath.Ext(s.filePath)
		s.filePath = strings.TrimSuffix(s.filePath, ext) + "." + s.format
	}

	dir := filepath.Dir(s.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	s.flk = flock.New(s.filePath + ".lock")
	locked, err := s.flk.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", s.filePath, err)
	}
	if !locked {
		if err := s.flk.Lock(); err != nil {
			return fmt.Errorf("failed to acquire blocking lock for %s: %w", s.filePath, err)
		}
	}
	return nil
}

// Load reads and verifies the snapshot.
func (s *FileSnapshotStore) Load() (Snapshot, error) {
	if s.flk == nil {
		return Snapshot{}, errors.New("store not initialized")
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{SchemaVersion: schemaVersion}, nil
		}
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", s.filePath, err)
	}

	if err := s.verifyChecksum(data); err != nil {
		return Snapshot{}, err
	}

	var snapshot Snapshot
	switch s.format {
	case formatJSON:
		err = json.Unmarshal(data, &snapshot)
	case formatYAML:
		err = yaml.Unmarshal(data, &snapshot)
	case formatTOML:
		err = toml.Unmarshal(data, &snapshot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode %s snapshot: %w", s.format, err)
	}
	return snapshot, nil
}

// Save serializes the snapshot, writes it atomically, and refreshes the
// checksum sidecar.
func (s *FileSnapshotStore) Save(snapshot Snapshot) error {
	if s.flk == nil {
		return errors.New("store not initialized")
	}
	snapshot.SchemaVersion = schemaVersion
	snapshot.SavedAt = time.Now().UTC()

	var (
		data []byte
		err  error
	)
	switch s.format {
	case formatJSON:
		data, err = json.MarshalIndent(snapshot, "", "  ")
	case formatYAML:
		data, err = yaml.Marshal(snapshot)
	case formatTOML:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(snapshot)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", s.format, err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.filePath, err)
	}
	if err := os.WriteFile(s.checksumPath(), []byte(calculateChecksum(data)), 0o644); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}
	return nil
}

// Backup copies the data file (and its checksum) to destinationPath.
func (s *FileSnapshotStore) Backup(destinationPath string) error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s for backup: %w", s.filePath, err)
	}
	if dir := filepath.Dir(destinationPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
	}
	if err := os.WriteFile(destinationPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", destinationPath, err)
	}
	return os.WriteFile(destinationPath+checksumSuffix, []byte(calculateChecksum(data)), 0o644)
}

// Restore replaces the current data file with the one at sourcePath.
func (s *FileSnapshotStore) Restore(sourcePath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read restore source %s: %w", sourcePath, err)
	}
	if err := os.WriteFile(s.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to restore %s: %w", s.filePath, err)
	}
	return os.WriteFile(s.checksumPath(), []byte(calculateChecksum(data)), 0o644)
}

// Close releases the file lock.
func (s *FileSnapshotStore) Close() error {
	if s.flk == nil {
		return nil
	}
	return s.flk.Unlock()
}

func (s *FileSnapshotStore) checksumPath() string {
	return s.filePath + checksumSuffix
}

func (s *FileSnapshotStore) verifyChecksum(data []byte) error {
	want, err := os.ReadFile(s.checksumPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Older snapshots predate the sidecar; accept them.
			return nil
		}
		return fmt.Errorf("failed to read checksum: %w", err)
	}
	got := calculateChecksum(data)
	if strings.TrimSpace(string(want)) != got {
		return fmt.Errorf("checksum mismatch for %s: snapshot may be corrupt", s.filePath)
	}
	return nil
}

func calculateChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
