package store

import (
	"time"

	"github.com/framerhq/framer/models"
)

// Snapshot is the unit of local persistence: the frame collection and the
// active conversation, serialized at process stop and restored at process
// start. Persistence is this explicit boundary, not a side effect of every
// mutation.
type Snapshot struct {
	SchemaVersion string               `json:"schemaVersion" yaml:"schemaVersion" toml:"schemaVersion"`
	SavedAt       time.Time            `json:"savedAt" yaml:"savedAt" toml:"savedAt"`
	Frames        []models.Frame       `json:"frames" yaml:"frames" toml:"frames"`
	Conversation  *models.Conversation `json:"conversation,omitempty" yaml:"conversation,omitempty" toml:"conversation,omitempty"`
}

// SnapshotStore defines the contract for snapshot persistence.
type SnapshotStore interface {
	// Initialize configures the store. Recognized keys: "dataFile" (path)
	// and "dataFileFormat" (json, yaml, or toml). It must be called before
	// any other operation.
	Initialize(config map[string]string) error

	// Load reads the persisted snapshot. A missing file yields an empty
	// snapshot, not an error; a corrupt one fails integrity verification.
	Load() (Snapshot, error)

	// Save writes the snapshot, replacing the previous one.
	Save(snapshot Snapshot) error

	// Backup copies the current data file to destinationPath.
	Backup(destinationPath string) error

	// Restore replaces the current data file with the one at sourcePath.
	Restore(sourcePath string) error

	// Close releases the file lock.
	Close() error
}
