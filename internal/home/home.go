package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the storyteller home directory.
	DefaultDirName = ".storyteller"

	// CheckpointsDirName is the subdirectory for analysis checkpoints.
	CheckpointsDirName = "checkpoints"

	// DBDirName is the subdirectory for the SQLite database.
	DBDirName = "db"

	// BooksDirName is the subdirectory for imported book text.
	BooksDirName = "books"

	// PromptsDirName is the subdirectory for per-book prompt overrides.
	PromptsDirName = "prompts"

	// ModelsDirName is the subdirectory mounted into the inference engine
	// container for GGUF model files.
	ModelsDirName = "models"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DBFileName is the SQLite database file name.
	DBFileName = "storyteller.db"

	// LockFileName is the process-exclusivity lock file name.
	LockFileName = "storyteller.lock"
)

// Dir represents the storyteller home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.storyteller).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// CheckpointsPath returns the root checkpoint directory.
func (d *Dir) CheckpointsPath() string {
	return filepath.Join(d.path, CheckpointsDirName)
}

// CheckpointKindPath returns the checkpoint directory for one analysis kind.
// Each kind keeps its own directory so (book, chapter) names never collide
// across kinds.
func (d *Dir) CheckpointKindPath(kind string) string {
	return filepath.Join(d.CheckpointsPath(), kind)
}

// DBPath returns the path to the SQLite database file.
func (d *Dir) DBPath() string {
	return filepath.Join(d.path, DBDirName, DBFileName)
}

// BooksPath returns the directory for imported book text.
func (d *Dir) BooksPath() string {
	return filepath.Join(d.path, BooksDirName)
}

// BookTextPath returns the stored text file for a book.
func (d *Dir) BookTextPath(bookID int64) string {
	return filepath.Join(d.BooksPath(), fmt.Sprintf("book_%d.txt", bookID))
}

// PromptsPath returns the root directory for prompt overrides.
func (d *Dir) PromptsPath() string {
	return filepath.Join(d.path, PromptsDirName)
}

// BookPromptsPath returns the prompt-override directory for a book.
func (d *Dir) BookPromptsPath(bookID int64) string {
	return filepath.Join(d.PromptsPath(), fmt.Sprintf("book_%d", bookID))
}

// ModelsPath returns the directory for GGUF model files.
func (d *Dir) ModelsPath() string {
	return filepath.Join(d.path, ModelsDirName)
}

// LockPath returns the path of the process-exclusivity lock file.
func (d *Dir) LockPath() string {
	return filepath.Join(d.path, LockFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{
		d.CheckpointsPath(),
		filepath.Join(d.path, DBDirName),
		d.BooksPath(),
		d.PromptsPath(),
		d.ModelsPath(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
