package bookfile

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

const ncxMediaType = "application/x-dtbncx+xml"

var errNoNCX = errors.New("epub has no NCX table of contents")

// tocEntry is an NCX navPoint reduced to what the chapter list shows.
type tocEntry struct {
	Label    string     `xml:"navLabel>text"`
	Children []tocEntry `xml:"navPoint"`
}

// tableOfContents returns the NCX entry titles in reading order, nested
// entries indented two spaces per level.
func tableOfContents(book *epub.Rootfile) ([]string, error) {
	item := ncxItem(book)
	if item == nil {
		return nil, errNoNCX
	}
	rc, err := item.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", item.HREF, err)
	}
	defer rc.Close()

	var doc struct {
		Points []tocEntry `xml:"navMap>navPoint"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", item.HREF, err)
	}

	var titles []string
	var walk func(entries []tocEntry, depth int)
	walk = func(entries []tocEntry, depth int) {
		for _, e := range entries {
			if label := strings.TrimSpace(e.Label); label != "" {
				titles = append(titles, strings.Repeat("  ", depth)+label)
			}
			walk(e.Children, depth+1)
		}
	}
	walk(doc.Points, 0)
	return titles, nil
}

// ncxItem finds the NCX by media type, falling back to its extension for
// packages that mislabel it.
func ncxItem(book *epub.Rootfile) *epub.Item {
	items := book.Manifest.Items
	for i := range items {
		if items[i].MediaType == ncxMediaType {
			return &items[i]
		}
	}
	for i := range items {
		if strings.HasSuffix(strings.ToLower(items[i].HREF), ".ncx") {
			return &items[i]
		}
	}
	return nil
}
