package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/bookpilot/internal/domain"
)

// recorded captures the last request the fake backend saw.
type recorded struct {
	method      string
	path        string
	auth        string
	contentType string
	body        []byte
	form        map[string][]string
	files       map[string]string
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.auth = r.Header.Get("Authorization")
		rec.contentType = r.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(rec.contentType, "multipart/form-data"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			rec.form = r.MultipartForm.Value
			rec.files = map[string]string{}
			for field, headers := range r.MultipartForm.File {
				f, err := headers[0].Open()
				require.NoError(t, err)
				data, _ := io.ReadAll(f)
				f.Close()
				rec.files[field] = headers[0].Filename + ":" + string(data)
			}
		case rec.contentType == "application/x-www-form-urlencoded":
			require.NoError(t, r.ParseForm())
			rec.form = r.PostForm
		default:
			rec.body, _ = io.ReadAll(r.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func staticToken(tok string) TokenSource {
	return TokenFunc(func() string { return tok })
}

func TestBearerInjection(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `[]`)

	c := New(srv.URL, WithTokenSource(staticToken("abc123")))
	_, err := c.Books.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc123", rec.auth)

	anon := New(srv.URL)
	_, err = anon.Books.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.auth, "no header without a token")
}

func TestTokenReadPerRequest(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `[]`)
	token := ""
	c := New(srv.URL, WithTokenSource(TokenFunc(func() string { return token })))

	c.Books.List(context.Background())
	assert.Empty(t, rec.auth)

	token = "late"
	c.Books.List(context.Background())
	assert.Equal(t, "Bearer late", rec.auth)
}

func TestBaseURLTrailingSlash(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"id":"b1","title":"T","status":"processed"}`)
	c := New(srv.URL + "/api/v1/")
	book, err := c.Books.Get(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/books/b1", rec.path)
	assert.Equal(t, domain.StatusProcessed, book.Status)
}

func TestAuthLoginIsFormEncoded(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"access_token":"jwt","token_type":"bearer"}`)
	c := New(srv.URL)

	tok, err := c.Auth.Login(context.Background(), "ada@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok.AccessToken)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/auth/login", rec.path)
	assert.Equal(t, []string{"ada@example.com"}, rec.form["username"])
	assert.Equal(t, []string{"s3cret"}, rec.form["password"])
}

func TestAuthLoginRequiresPassword(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.Auth.Login(context.Background(), "ada@example.com", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestAuthRegisterAndMe(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"id":"u1","email":"ada@example.com"}`)
	c := New(srv.URL)

	u, err := c.Auth.Register(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.JSONEq(t, `{"email":"ada@example.com","provider":"email"}`, string(rec.body))

	_, err = c.Auth.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/auth/me", rec.path)
}

func TestBooksUploadMultipart(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"id":"b9","title":"Walden","status":"uploaded"}`)
	c := New(srv.URL)

	book, err := c.Books.Upload(context.Background(), Upload{
		Title:    "Walden",
		Author:   "Thoreau",
		Filename: "walden.txt",
		File:     strings.NewReader("I went to the woods"),
	})
	require.NoError(t, err)
	assert.Equal(t, "b9", book.ID)
	assert.Equal(t, "/books", rec.path)
	assert.Equal(t, []string{"Walden"}, rec.form["title"])
	assert.Equal(t, []string{"Thoreau"}, rec.form["author"])
	assert.Equal(t, "walden.txt:I went to the woods", rec.files["file"])
}

func TestBooksUploadOmitsEmptyAuthor(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"id":"b9"}`)
	c := New(srv.URL)

	_, err := c.Books.Upload(context.Background(), Upload{Title: "Walden", Filename: "w.txt", File: strings.NewReader("x")})
	require.NoError(t, err)
	_, hasAuthor := rec.form["author"]
	assert.False(t, hasAuthor)
}

func TestBooksProcessAndDelete(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"id":"b1","status":"processing"}`)
	c := New(srv.URL)

	book, err := c.Books.Process(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "/books/b1/process", rec.path)
	assert.Equal(t, domain.StatusProcessing, book.Status)

	srv204, rec204 := newServer(t, http.StatusNoContent, ``)
	c = New(srv204.URL)
	require.NoError(t, c.Books.Delete(context.Background(), "b1"))
	assert.Equal(t, http.MethodDelete, rec204.method)
	assert.Equal(t, "/books/b1", rec204.path)
}

func TestGuides(t *testing.T) {
	guideJSON := `{
		"id":"g1","book_id":"b1",
		"json_content":{"title":"Walden","toc":["Economy"],"chapters":[{"title":"Economy","summary":"s","questions":["q"],"task":"t"}],
			"synthesis":{"key_takeaways":["simplify"],"action_plan":"plan"},
			"quiz":[{"question":"Where?","options":["Pond","City"],"correct_answer":0}]},
		"progress":{"completed_chapters":[0],"quiz_results":{"0":1}},
		"created_at":"2024-01-02T03:04:05.123456","updated_at":"2024-01-02T03:04:05"
	}`
	srv, rec := newServer(t, http.StatusOK, guideJSON)
	c := New(srv.URL)
	ctx := context.Background()

	g, err := c.Guides.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "/guides/b1", rec.path)
	assert.Equal(t, "Economy", g.Content.Chapters[0].Title)
	assert.Equal(t, 100, g.CompletionPercentage())
	opt, ok := g.Progress.Answer(0)
	assert.True(t, ok)
	assert.Equal(t, 1, opt)

	_, err = c.Guides.UpdateProgress(ctx, "b1", domain.ProgressUpdate{QuizResults: map[int]int{2: 3}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, rec.method)
	assert.Equal(t, "/guides/b1/progress", rec.path)
	assert.JSONEq(t, `{"quiz_results":{"2":3}}`, string(rec.body))

	_, err = c.Guides.SubmitQuizResults(ctx, "b1", map[int]int{0: 0})
	require.NoError(t, err)
	assert.Equal(t, "/guides/b1/quiz/results", rec.path)
	assert.JSONEq(t, `{"0":0}`, string(rec.body))

	_, err = c.Guides.Export(ctx, "b1", "")
	require.NoError(t, err)
	assert.Equal(t, "/guides/b1/export", rec.path)
	assert.JSONEq(t, `{"format":"pdf"}`, string(rec.body))
}

func TestGuidesQuiz(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `[{"question":"Q","options":["a","b"],"correct_answer":1}]`)
	c := New(srv.URL)
	quiz, err := c.Guides.Quiz(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "/guides/b1/quiz", rec.path)
	require.Len(t, quiz, 1)
	assert.Equal(t, "b", quiz[0].CorrectOption())
}

func TestChat(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, `{"role":"assistant","content":"Hello","timestamp":"2024-01-01T00:00:00"}`)
	c := New(srv.URL)

	reply, err := c.Chat.Send(context.Background(), "b1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "/chat/b1/messages", rec.path)
	assert.JSONEq(t, `{"role":"user","content":"hi"}`, string(rec.body))
	assert.Equal(t, domain.RoleAssistant, reply.Role)
	assert.False(t, reply.Timestamp.IsZero())
}

func TestChatMessages(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `[{"role":"user","content":"a","timestamp":"2024-01-01T00:00:00Z"},{"role":"assistant","content":"b","timestamp":"2024-01-01T00:00:01Z"}]`)
	c := New(srv.URL)
	msgs, err := c.Chat.Messages(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[1].Content)
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		message  string
		notFound bool
	}{
		{"detail string", http.StatusNotFound, `{"detail":"Book not found"}`, "Book not found", true},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"bad email"}]}`, "field required; bad email", false},
		{"plain text", http.StatusBadGateway, `upstream down`, "upstream down", false},
		{"empty", http.StatusInternalServerError, ``, "Internal Server Error", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			_, err := New(srv.URL).Books.Get(context.Background(), "x")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.notFound, IsNotFound(err))
		})
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Books.List(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := New(srv.URL).Books.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimeoutOption(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	_, err := New(srv.URL, WithTimeout(30*time.Millisecond)).Books.List(context.Background())
	assert.Error(t, err)
}

func TestTimeoutOptionIgnoresOrder(t *testing.T) {
	tests := []struct {
		name string
		opts func(hc *http.Client) []Option
	}{
		{"timeout first", func(hc *http.Client) []Option { return []Option{WithTimeout(time.Second), WithHTTPClient(hc)} }},
		{"client first", func(hc *http.Client) []Option { return []Option{WithHTTPClient(hc), WithTimeout(time.Second)} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &http.Client{}
			c := New("http://example.com", tt.opts(hc)...)

			assert.Equal(t, time.Second, c.httpClient.Timeout)
			assert.Zero(t, hc.Timeout, "caller's client is not modified")
		})
	}
}

func TestDecodeError(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{not json`)
	_, err := New(srv.URL).Books.List(context.Background())
	require.Error(t, err)
	var syntax *json.SyntaxError
	assert.True(t, errors.As(err, &syntax))
}
