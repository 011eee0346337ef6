package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// GuidesService covers /guides.
type GuidesService struct{ c *Client }

func guidePath(bookID string) string {
	return "/guides/" + url.PathEscape(bookID)
}

// Get returns the guide generated for a book.
func (s *GuidesService) Get(ctx context.Context, bookID string) (domain.Guide, error) {
	var guide domain.Guide
	if err := s.c.doJSON(ctx, http.MethodGet, guidePath(bookID), nil, &guide); err != nil {
		return domain.Guide{}, err
	}
	return guide, nil
}

// UpdateProgress patches progress. The server replaces each field that is set.
func (s *GuidesService) UpdateProgress(ctx context.Context, bookID string, update domain.ProgressUpdate) (domain.Guide, error) {
	var guide domain.Guide
	if err := s.c.doJSON(ctx, http.MethodPatch, guidePath(bookID)+"/progress", update, &guide); err != nil {
		return domain.Guide{}, err
	}
	return guide, nil
}

// Quiz returns the guide's quiz questions.
func (s *GuidesService) Quiz(ctx context.Context, bookID string) ([]domain.QuizQuestion, error) {
	var quiz []domain.QuizQuestion
	if err := s.c.doJSON(ctx, http.MethodGet, guidePath(bookID)+"/quiz", nil, &quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// SubmitQuizResults stores a full set of answers, question index to option index.
func (s *GuidesService) SubmitQuizResults(ctx context.Context, bookID string, results map[int]int) (domain.Guide, error) {
	var guide domain.Guide
	if err := s.c.doJSON(ctx, http.MethodPost, guidePath(bookID)+"/quiz/results", results, &guide); err != nil {
		return domain.Guide{}, err
	}
	return guide, nil
}

// Export requests a rendered copy of the guide.
func (s *GuidesService) Export(ctx context.Context, bookID, format string) (domain.Export, error) {
	if format == "" {
		format = "pdf"
	}
	in := map[string]string{"format": format}
	var out domain.Export
	if err := s.c.doJSON(ctx, http.MethodPost, guidePath(bookID)+"/export", in, &out); err != nil {
		return domain.Export{}, err
	}
	return out, nil
}
