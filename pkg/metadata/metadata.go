package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"instagramdl/pkg/models"
	"instagramdl/pkg/storage"
)

// Supported sidecar formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// PostMetadata is the sidecar written next to the media of one post.
type PostMetadata struct {
	SourceURL    string       `json:"source_url" yaml:"source_url"`
	DownloadedAt time.Time    `json:"downloaded_at" yaml:"downloaded_at"`
	Files        []string     `json:"files,omitempty" yaml:"files,omitempty"`
	Failed       []string     `json:"failed,omitempty" yaml:"failed,omitempty"`
	Post         *models.Post `json:"post" yaml:"post"`
}

// New builds the sidecar for post. files are the saved paths, stored
// relative to the sidecar's directory; failed are media URLs that could not
// be fetched.
func New(sourceURL string, post *models.Post, files, failed []string) *PostMetadata {
	return &PostMetadata{
		SourceURL:    sourceURL,
		DownloadedAt: time.Now().UTC(),
		Files:        files,
		Failed:       failed,
		Post:         post,
	}
}

// Writer saves sidecars through a storage manager so they follow the same
// never-overwrite rule as the media.
type Writer struct {
	store  *storage.Manager
	format string
}

// NewWriter creates a Writer for the given format (json or yaml).
func NewWriter(store *storage.Manager, format string) (*Writer, error) {
	format = strings.ToLower(format)
	switch format {
	case FormatJSON, FormatYAML:
	case "yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("unsupported metadata format %q", format)
	}
	return &Writer{store: store, format: format}, nil
}

// Write saves m as <shortcode>.<format> and returns the path.
func (w *Writer) Write(m *PostMetadata) (string, error) {
	dir := w.store.GetOutputDir()
	rel := *m
	rel.Files = make([]string, len(m.Files))
	for i, p := range m.Files {
		if r, err := filepath.Rel(dir, p); err == nil {
			rel.Files[i] = r
		} else {
			rel.Files[i] = p
		}
	}

	data, err := Marshal(&rel, w.format)
	if err != nil {
		return "", err
	}

	base := "post"
	if m.Post != nil {
		if m.Post.Shortcode != "" {
			base = m.Post.Shortcode
		} else if m.Post.ID != "" {
			base = m.Post.ID
		}
	}

	f, err := w.store.CreateNamed(base, "."+w.format)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}
	name := f.Name()

	_, err = f.Write(data)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to write metadata file: %w", err)
	}
	return name, nil
}

// Marshal encodes m in the given format.
func Marshal(m *PostMetadata, format string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// Load reads a sidecar, choosing the decoder by file extension.
func Load(path string) (*PostMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta PostMetadata
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &meta)
	default:
		err = json.Unmarshal(data, &meta)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// FormattedCaption returns the caption on one line, truncated to maxLength.
func FormattedCaption(p *models.Post, maxLength int) string {
	caption := strings.Join(strings.Fields(p.CaptionText()), " ")
	runes := []rune(caption)
	if maxLength > 3 && len(runes) > maxLength {
		return string(runes[:maxLength-3]) + "..."
	}
	return caption
}

// AspectRatio returns the post's aspect ratio as a string
func AspectRatio(p *models.Post) string {
	if p.Height == 0 || p.Width == 0 {
		return "unknown"
	}

	ratio := float64(p.Width) / float64(p.Height)
	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.79 && ratio < 0.81:
		return "4:5"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}
