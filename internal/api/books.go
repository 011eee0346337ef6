package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// BooksService covers /books.
type BooksService struct{ c *Client }

// Upload is the multipart body of a new book.
type Upload struct {
	Title    string
	Author   string
	Filename string
	File     io.Reader
}

// List returns every book of the session's user.
func (s *BooksService) List(ctx context.Context) ([]domain.Book, error) {
	var books []domain.Book
	if err := s.c.doJSON(ctx, http.MethodGet, "/books", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Get returns one book.
func (s *BooksService) Get(ctx context.Context, id string) (domain.Book, error) {
	var book domain.Book
	if err := s.c.doJSON(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// Upload sends a book file. Author is omitted when empty.
func (s *BooksService) Upload(ctx context.Context, up Upload) (domain.Book, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("title", up.Title); err != nil {
		return domain.Book{}, err
	}
	if up.Author != "" {
		if err := writer.WriteField("author", up.Author); err != nil {
			return domain.Book{}, err
		}
	}
	part, err := writer.CreateFormFile("file", up.Filename)
	if err != nil {
		return domain.Book{}, err
	}
	if _, err := io.Copy(part, up.File); err != nil {
		return domain.Book{}, err
	}
	if err := writer.Close(); err != nil {
		return domain.Book{}, err
	}

	req, err := s.c.newRequest(ctx, http.MethodPost, "/books", body, writer.FormDataContentType())
	if err != nil {
		return domain.Book{}, err
	}
	var book domain.Book
	if err := s.c.do(req, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// Process asks the backend to (re)process a book.
func (s *BooksService) Process(ctx context.Context, id string) (domain.Book, error) {
	var book domain.Book
	if err := s.c.doJSON(ctx, http.MethodPost, "/books/"+url.PathEscape(id)+"/process", nil, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// Delete removes a book.
func (s *BooksService) Delete(ctx context.Context, id string) error {
	return s.c.doJSON(ctx, http.MethodDelete, "/books/"+url.PathEscape(id), nil, nil)
}
