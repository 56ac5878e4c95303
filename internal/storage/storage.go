package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/natefinch/atomic"

	"github.com/denny0223/todo-api/internal/domain"
)

// Service persists the whole dataset as a single JSON document on disk.
// Every request reloads the file and every mutation rewrites it in full;
// there is no cross-request cache.
type Service interface {
	// Load reads the full dataset. A missing, unreadable, or malformed
	// file yields an empty dataset (with a logged warning) rather than
	// an error; the next successful Save overwrites whatever was there.
	Load() domain.Dataset

	// Save serializes the full dataset and writes it atomically, so a
	// crash mid-write never leaves a truncated file behind.
	Save(domain.Dataset) error

	Health() map[string]string
	Path() string
}

type fileStore struct {
	path string
}

// New creates a store backed by the file named in TODO_DATA_FILE,
// falling back to todos.json in the working directory.
func New() Service {
	path := os.Getenv("TODO_DATA_FILE")
	if path == "" {
		path = "todos.json"
	}
	return NewWithPath(path)
}

// NewWithPath creates a store backed by an explicit file path.
func NewWithPath(path string) Service {
	return &fileStore{path: path}
}

func (s *fileStore) Path() string {
	return s.path
}

func (s *fileStore) Load() domain.Dataset {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: cannot read data file %s, treating dataset as empty: %v", s.path, err)
		}
		return domain.Dataset{}
	}

	var ds domain.Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		// Deliberately loss-tolerant: a corrupt file is discarded on
		// the next successful Save. See DESIGN.md.
		log.Printf("Warning: malformed data file %s, treating dataset as empty: %v", s.path, err)
		return domain.Dataset{}
	}
	if ds == nil {
		ds = domain.Dataset{}
	}
	return ds
}

func (s *fileStore) Save(ds domain.Dataset) error {
	b, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write data file %s: %w", s.path, err)
	}
	return nil
}

func (s *fileStore) Health() map[string]string {
	stats := make(map[string]string)
	stats["data_file"] = s.path

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			stats["status"] = "up"
			stats["message"] = "Data file not created yet; dataset is empty"
			return stats
		}
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("cannot stat data file: %v", err)
		return stats
	}

	ds := s.Load()
	totalTodos := 0
	for _, todos := range ds {
		totalTodos += len(todos)
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["size_bytes"] = strconv.FormatInt(info.Size(), 10)
	stats["users"] = strconv.Itoa(len(ds))
	stats["todos"] = strconv.Itoa(totalTodos)
	return stats
}
