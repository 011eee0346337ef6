package bookfile

import (
	"bufio"
	"os"
	"strings"
)

// TextFormat implements Format for plain text files.
type TextFormat struct{}

func init() {
	Register(&TextFormat{})
}

func (f *TextFormat) Name() string         { return "TXT" }
func (f *TextFormat) Extensions() []string { return []string{".txt"} }
func (f *TextFormat) MediaType() string    { return "text/plain" }

// Inspect counts words and uses the first non-empty line as the title.
func (f *TextFormat) Inspect(filename string) (Metadata, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Metadata{}, err
	}
	defer file.Close()

	var meta Metadata
	var head []string

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if meta.Title == "" && line != "" && len(line) <= 120 {
			meta.Title = line
		}
		words := strings.Fields(line)
		meta.Words += len(words)
		if len(head) < previewWords {
			head = append(head, words...)
		}
	}
	meta.Preview = preview(head, previewWords)
	return meta, scanner.Err()
}

const previewWords = 20
