package bookfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }
func (f *EPUBFormat) MediaType() string    { return "application/epub+zip" }

// Inspect reads the package metadata, the NCX table of contents and the spine text.
func (f *EPUBFormat) Inspect(filename string) (Metadata, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return Metadata{}, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	meta := Metadata{
		Title:  strings.TrimSpace(book.Metadata.Title),
		Author: strings.TrimSpace(book.Metadata.Creator),
	}

	var head []string
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		words := strings.Fields(extractTextFromHTML(string(data)))
		meta.Words += len(words)
		if len(head) < previewWords {
			head = append(head, words...)
		}
	}
	meta.Preview = preview(head, previewWords)

	// A missing NCX only costs the chapter list
	if toc, err := tableOfContents(book); err == nil {
		meta.Chapters = toc
	}
	return meta, nil
}

func extractTextFromHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "head") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out.WriteString(t)
				out.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out.String()
}
