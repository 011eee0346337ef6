package bookfile

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/taylorskalyo/goreader/epub"
)

func TestExtractTextFromHTML(t *testing.T) {
	htmlContent := `
	<html>
		<head><title>Test</title><style>p { color: red; }</style></head>
		<body>
			<h1>Chapter 1</h1>
			<p>This is the <b>first</b> paragraph.</p>
			<script>var x = 1;</script>
			<div>Some <span>nested</span> text.</div>
		</body>
	</html>
	`

	expected := []string{"Chapter", "1", "This", "is", "the", "first", "paragraph.", "Some", "nested", "text."}

	text := extractTextFromHTML(htmlContent)
	words := splitWords(text)

	if len(words) != len(expected) {
		t.Fatalf("Expected %d words, got %d: %v", len(expected), len(words), words)
	}
	for i, word := range words {
		if word != expected[i] {
			t.Errorf("Word %d: expected %q, got %q", i, expected[i], word)
		}
	}
}

func TestInspectEPUB(t *testing.T) {
	path := writeEPUB(t)

	meta, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if meta.Title != "The Stoic Handbook" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Author != "Epictetus" {
		t.Errorf("Author = %q", meta.Author)
	}
	if meta.Words != 10 {
		t.Errorf("Words = %d, want 10", meta.Words)
	}
	wantChapters := []string{"Control", "  Dichotomy", "Desire"}
	if len(meta.Chapters) != len(wantChapters) {
		t.Fatalf("Chapters = %q, want %q", meta.Chapters, wantChapters)
	}
	for i := range wantChapters {
		if meta.Chapters[i] != wantChapters[i] {
			t.Errorf("Chapter %d = %q, want %q", i, meta.Chapters[i], wantChapters[i])
		}
	}
}

func TestInspectCorruptEPUB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.epub")
	os.WriteFile(path, []byte("not a zip"), 0644)
	if _, err := Inspect(path); err == nil {
		t.Error("expected error for corrupt epub")
	}
}

func splitWords(s string) []string {
	var out []string
	word := []rune{}
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			if len(word) > 0 {
				out = append(out, string(word))
				word = word[:0]
			}
			continue
		}
		word = append(word, r)
	}
	if len(word) > 0 {
		out = append(out, string(word))
	}
	return out
}

// writeEPUB builds a two chapter EPUB 2 package in a temp dir.
func writeEPUB(t *testing.T) string {
	t.Helper()

	files := []struct{ name, body string }{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`},
		{"content.opf", `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Stoic Handbook</dc:title>
    <dc:creator>Epictetus</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier id="id">stoic-1</dc:identifier>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`},
		{"toc.ncx", `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>Control</text></navLabel>
      <content src="ch1.xhtml"/>
      <navPoint id="p1a" playOrder="2">
        <navLabel><text>Dichotomy</text></navLabel>
        <content src="ch1.xhtml#d"/>
      </navPoint>
    </navPoint>
    <navPoint id="p2" playOrder="3">
      <navLabel><text>Desire</text></navLabel>
      <content src="ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`},
		{"ch1.xhtml", `<html><body><p>Some things are within our power.</p></body></html>`},
		{"ch2.xhtml", `<html><body><p>Desire demands its own.</p></body></html>`},
	}

	path := filepath.Join(t.TempDir(), "stoic.epub")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	zw := zip.NewWriter(out)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", f.name, err)
		}
		w.Write([]byte(f.body))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	out.Close()
	return path
}

func TestNCXItem(t *testing.T) {
	tests := []struct {
		name  string
		items []epub.Item
		want  string
	}{
		{"by media type", []epub.Item{{ID: "c", HREF: "c.xhtml"}, {ID: "toc", HREF: "nav/toc.xml", MediaType: ncxMediaType}}, "toc"},
		{"by extension", []epub.Item{{ID: "c", HREF: "c.xhtml"}, {ID: "toc", HREF: "TOC.NCX", MediaType: "text/xml"}}, "toc"},
		{"missing", []epub.Item{{ID: "c", HREF: "c.xhtml"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := &epub.Rootfile{}
			book.Manifest.Items = tt.items
			got := ncxItem(book)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("ncxItem = %q, want none", got.ID)
			case tt.want != "" && (got == nil || got.ID != tt.want):
				t.Errorf("ncxItem = %v, want %q", got, tt.want)
			}
		})
	}
}
