package bookfile

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFFormat implements Format for PDF files.
type PDFFormat struct{}

func init() {
	Register(&PDFFormat{})
}

func (f *PDFFormat) Name() string         { return "PDF" }
func (f *PDFFormat) Extensions() []string { return []string{".pdf"} }
func (f *PDFFormat) MediaType() string    { return "application/pdf" }

// Inspect reads the document info dictionary and previews the first page with text.
func (f *PDFFormat) Inspect(filename string) (Metadata, error) {
	file, r, err := pdf.Open(filename)
	if err != nil {
		return Metadata{}, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	meta := Metadata{Pages: r.NumPage()}

	info := r.Trailer().Key("Info")
	meta.Title = strings.TrimSpace(info.Key("Title").Text())
	meta.Author = strings.TrimSpace(info.Key("Author").Text())

	for i := 1; i <= meta.Pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages
			continue
		}
		if words := strings.Fields(text); len(words) > 0 {
			meta.Preview = preview(words, previewWords)
			break
		}
	}
	return meta, nil
}
