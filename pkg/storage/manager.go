package storage

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// maxNameAttempts bounds the retries when a generated name already exists.
const maxNameAttempts = 8

// Manager writes downloaded media into one directory under generated names.
// A name is claimed with O_EXCL, so an existing file is never reused or
// overwritten.
type Manager struct {
	outputDir string
	newName   func() string
	saved     int
	mu        sync.Mutex
}

// NewManager creates a new storage manager, creating outputDir if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		newName:   uuid.NewString,
	}, nil
}

// Create claims a fresh file with the given extension and opens it for
// writing. The caller must close it.
func (m *Manager) Create(ext string) (*os.File, error) {
	return m.create("", ext)
}

// CreateNamed is Create with a preferred base name. When base+ext is taken
// a random suffix is appended instead.
func (m *Manager) CreateNamed(base, ext string) (*os.File, error) {
	return m.create(base, ext)
}

func (m *Manager) create(base, ext string) (*os.File, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	for i := 0; i < maxNameAttempts; i++ {
		name := m.newName()
		switch {
		case base != "" && i == 0:
			name = base
		case base != "":
			name = base + "-" + name
		}

		f, err := os.OpenFile(filepath.Join(m.outputDir, name+ext), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create file: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to find a free file name in %s after %d attempts", m.outputDir, maxNameAttempts)
}

// Save copies r into a freshly claimed file and returns its path. A
// partially written file is removed on failure.
func (m *Manager) Save(r io.Reader, ext string) (string, int64, error) {
	out, err := m.Create(ext)
	if err != nil {
		return "", 0, err
	}
	name := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(name)
		return "", n, fmt.Errorf("failed to save media data: %w", err)
	}
	if closeErr != nil {
		os.Remove(name)
		return "", n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	m.mu.Lock()
	m.saved++
	m.mu.Unlock()

	return name, n, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetSavedCount returns the number of files saved by this manager
func (m *Manager) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

// ExtFromURL returns the extension of the URL's path, or fallback when it
// has none. Query strings, common on CDN URLs, are ignored.
func ExtFromURL(raw, fallback string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 6 {
		return fallback
	}
	return ext
}
