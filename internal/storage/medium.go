package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

// DefaultRegionSize is the reserved non-volatile region, of which the record uses RecordSize bytes.
const DefaultRegionSize = 512

// Medium is the non-volatile backing of the configuration region.
type Medium interface {
	// Load returns the full region. A medium that was never written reads as zeros.
	Load() ([]byte, error)
	// Commit persists the full region.
	Commit(region []byte) error
	Size() int
}

// FileMedium keeps the region in a file and commits by atomic replace, so a
// power cut during commit leaves either the old or the new region.
type FileMedium struct {
	path string
	size int
}

func NewFileMedium(path string, size int) (*FileMedium, error) {
	if size < RecordSize {
		return nil, fmt.Errorf("region size %d smaller than record size %d", size, RecordSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileMedium{path: path, size: size}, nil
}

func (m *FileMedium) Size() int { return m.size }

func (m *FileMedium) Path() string { return m.path }

func (m *FileMedium) Load() ([]byte, error) {
	region := make([]byte, m.size)

	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return region, nil
		}
		return nil, fmt.Errorf("failed to read region: %w", err)
	}

	copy(region, data)
	return region, nil
}

func (m *FileMedium) Commit(region []byte) error {
	if len(region) != m.size {
		return fmt.Errorf("region length %d, want %d", len(region), m.size)
	}
	if err := atomic.WriteFile(m.path, bytes.NewReader(region)); err != nil {
		return fmt.Errorf("failed to commit region: %w", err)
	}
	return nil
}

// MemoryMedium is a volatile medium for tests and dry runs.
type MemoryMedium struct {
	mu        sync.Mutex
	region    []byte
	commits   int
	CommitErr error
}

func NewMemoryMedium(size int) *MemoryMedium {
	return &MemoryMedium{region: make([]byte, size)}
}

func (m *MemoryMedium) Size() int { return len(m.region) }

func (m *MemoryMedium) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.region...), nil
}

func (m *MemoryMedium) Commit(region []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.region = append(m.region[:0], region...)
	m.commits++
	return nil
}

// Commits returns how many commits succeeded.
func (m *MemoryMedium) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// Bytes returns a copy of the committed region.
func (m *MemoryMedium) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.region...)
}
