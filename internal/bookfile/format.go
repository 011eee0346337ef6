// Package bookfile validates and inspects book files before they are uploaded.
package bookfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxSize is the largest file the upload page accepts.
const MaxSize = 50 * 1024 * 1024

var (
	ErrFileRequired    = errors.New("please select a file to upload")
	ErrTitleRequired   = errors.New("book title is required")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file is larger than 50MB")
)

// Metadata is what can be learned about a book file locally.
type Metadata struct {
	Title    string
	Author   string
	Pages    int
	Words    int
	Chapters []string
	Preview  string
}

// Format inspects one kind of book file.
type Format interface {
	Name() string
	Extensions() []string
	MediaType() string
	Inspect(filename string) (Metadata, error)
}

var registry []Format

// Register adds a format to the set of accepted uploads.
func Register(f Format) {
	registry = append(registry, f)
}

// Lookup returns the format registered for filename's extension.
func Lookup(filename string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f, true
			}
		}
	}
	return nil, false
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

// Check applies the upload rules to a file name and size.
func Check(name string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return ErrFileRequired
	}
	if _, ok := Lookup(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(name))
	}
	if size > MaxSize {
		return fmt.Errorf("%w: %.2f MB", ErrTooLarge, float64(size)/1024/1024)
	}
	return nil
}

// Validate stats path and applies the upload rules.
func Validate(path string) (os.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrFileRequired
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if err := Check(info.Name(), info.Size()); err != nil {
		return nil, err
	}
	return info, nil
}

// Inspect validates path and reads what metadata its format offers.
// The title falls back to the file name without its extension.
func Inspect(path string) (Metadata, error) {
	if _, err := Validate(path); err != nil {
		return Metadata{}, err
	}
	f, _ := Lookup(path)
	meta, err := f.Inspect(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("inspect %s: %w", f.Name(), err)
	}
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = TitleFromFilename(path)
	}
	return meta, nil
}

// TitleFromFilename strips the directory and the last extension.
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func preview(words []string, n int) string {
	if len(words) == 0 {
		return ""
	}
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
