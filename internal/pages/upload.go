package pages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/api"
	"github.com/metcalfc/bookpilot/internal/bookfile"
	"github.com/metcalfc/bookpilot/internal/domain"
)

// Uploader sends a book file.
type Uploader interface {
	Upload(ctx context.Context, up api.Upload) (domain.Book, error)
}

// UploadForm is a snapshot of the upload page.
type UploadForm struct {
	Title      string
	Author     string
	Path       string
	Size       int64
	Meta       *bookfile.Metadata
	Submitting bool
	Banner     string
}

// FileName is the base name of the chosen file.
func (f UploadForm) FileName() string {
	if f.Path == "" {
		return ""
	}
	return filepath.Base(f.Path)
}

// CanSubmit mirrors the enabled state of the submit button.
func (f UploadForm) CanSubmit() bool {
	return !f.Submitting && strings.TrimSpace(f.Title) != "" && f.Path != ""
}

// Upload is the "Upload a Book" page. Validation is local and happens
// before any request.
type Upload struct {
	base
	uploader Uploader
	inspect  func(path string) (bookfile.Metadata, error)
	form     UploadForm
}

// NewUpload returns the upload controller.
func NewUpload(s Session, up Uploader, logger *zap.Logger) *Upload {
	return &Upload{base: newBase(s, logger), uploader: up, inspect: bookfile.Inspect}
}

// Enter gates the page; it has nothing to fetch.
func (p *Upload) Enter(parent context.Context) *Target {
	if t := p.gate(); t != nil {
		return t
	}
	p.life.begin(parent)
	p.mu.Lock()
	p.status = StatusReady
	p.mu.Unlock()
	return nil
}

// Form returns the current form state.
func (p *Upload) Form() UploadForm {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f := p.form
	f.Banner = p.banner
	return f
}

// SetTitle updates the title field.
func (p *Upload) SetTitle(title string) {
	p.mu.Lock()
	p.form.Title = title
	p.mu.Unlock()
}

// SetAuthor updates the optional author field.
func (p *Upload) SetAuthor(author string) {
	p.mu.Lock()
	p.form.Author = author
	p.mu.Unlock()
}

// ChooseFile accepts a file if its type and size are allowed. An empty title
// is filled from the file's metadata or name, as is an empty author. A
// rejected file also clears any file chosen before it.
func (p *Upload) ChooseFile(path string) error {
	info, err := bookfile.Validate(path)
	if err != nil {
		p.mu.Lock()
		p.banner = rejection(err)
		p.form.Path, p.form.Size, p.form.Meta = "", 0, nil
		p.mu.Unlock()
		return err
	}

	meta, err := p.inspect(path)
	if err != nil {
		// Metadata is a convenience; the backend parses the file itself
		p.logger.Warn("inspect book file", zap.String("path", path), zap.Error(err))
		meta = bookfile.Metadata{Title: bookfile.TitleFromFilename(path)}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.banner = ""
	p.form.Path = path
	p.form.Size = info.Size()
	p.form.Meta = &meta
	if strings.TrimSpace(p.form.Title) == "" {
		p.form.Title = meta.Title
	}
	if strings.TrimSpace(p.form.Author) == "" {
		p.form.Author = meta.Author
	}
	return nil
}

// Submit validates the form, uploads the file and returns the book list as
// the next page. It does not wait for processing.
func (p *Upload) Submit(ctx context.Context) (*Target, error) {
	if t := p.gate(); t != nil {
		return t, nil
	}

	p.mu.Lock()
	form := p.form
	switch {
	case form.Path == "":
		err := bookfile.ErrFileRequired
		p.banner = rejection(err)
		p.mu.Unlock()
		return nil, err
	case strings.TrimSpace(form.Title) == "":
		err := bookfile.ErrTitleRequired
		p.banner = rejection(err)
		p.mu.Unlock()
		return nil, err
	}
	p.banner = ""
	p.form.Submitting = true
	p.mu.Unlock()

	visit, gen := p.life.join(ctx)
	book, err := p.send(visit, form)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.form.Submitting = false
	if !p.life.current(gen) {
		return nil, ErrStale
	}
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) || !isValidation(err) {
			p.logger.Error("upload book", zap.String("path", form.Path), zap.Error(err))
			p.banner = "Failed to upload book. Please try again."
		} else {
			p.banner = rejection(err)
		}
		return nil, err
	}
	p.logger.Info("book uploaded", zap.String("book_id", book.ID), zap.String("title", book.Title))
	p.form = UploadForm{}
	return &Target{Route: RouteBooks}, nil
}

func (p *Upload) send(ctx context.Context, form UploadForm) (domain.Book, error) {
	// The file may have changed since it was chosen
	if _, err := bookfile.Validate(form.Path); err != nil {
		return domain.Book{}, err
	}
	f, err := os.Open(form.Path)
	if err != nil {
		return domain.Book{}, err
	}
	defer f.Close()

	return p.uploader.Upload(ctx, api.Upload{
		Title:    strings.TrimSpace(form.Title),
		Author:   strings.TrimSpace(form.Author),
		Filename: filepath.Base(form.Path),
		File:     f,
	})
}

func isValidation(err error) bool {
	return errors.Is(err, bookfile.ErrUnsupportedType) ||
		errors.Is(err, bookfile.ErrTooLarge) ||
		errors.Is(err, bookfile.ErrFileRequired) ||
		errors.Is(err, bookfile.ErrTitleRequired)
}

// rejection turns a validation error into the message shown on the form.
func rejection(err error) string {
	switch {
	case errors.Is(err, bookfile.ErrFileRequired):
		return "Please select a file to upload."
	case errors.Is(err, bookfile.ErrTitleRequired):
		return "Please enter a book title."
	case errors.Is(err, bookfile.ErrUnsupportedType):
		return "Unsupported file type. Supported formats: PDF, EPUB, TXT (max 50MB)."
	case errors.Is(err, bookfile.ErrTooLarge):
		return "File is too large. The maximum size is 50MB."
	default:
		return "Could not read the selected file."
	}
}
