//go:build !gui

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/bookpilot/internal/bookfile"
	"github.com/metcalfc/bookpilot/internal/config"
	"github.com/metcalfc/bookpilot/internal/domain"
)

type backend struct {
	*httptest.Server
	mu       sync.Mutex
	auth     []string
	uploads  []map[string]string
	deleted  []string
	answered map[string]int
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	quiz := []domain.QuizQuestion{
		{Question: "Deep work is?", Options: []string{"Rare", "Common"}, CorrectAnswer: 0},
		{Question: "Shallow work is?", Options: []string{"Valuable", "Replaceable"}, CorrectAnswer: 1},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		writeJSON(w, domain.Token{AccessToken: "tok", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /books", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		b.mu.Unlock()
		writeJSON(w, []domain.Book{
			{ID: "b1", Title: "Deep Work", Author: "Cal Newport", Status: domain.StatusProcessed},
			{ID: "b2", Title: "Walden", Status: domain.StatusError},
		})
	})
	mux.HandleFunc("POST /books", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		b.mu.Lock()
		b.uploads = append(b.uploads, map[string]string{
			"title":  r.FormValue("title"),
			"author": r.FormValue("author"),
			"file":   header.Filename,
		})
		b.mu.Unlock()
		writeJSON(w, domain.Book{ID: "b3", Title: r.FormValue("title"), Status: domain.StatusUploaded})
	})
	mux.HandleFunc("POST /books/{id}/process", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, domain.Book{ID: r.PathValue("id"), Title: "Walden", Status: domain.StatusProcessing})
	})
	mux.HandleFunc("DELETE /books/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.deleted = append(b.deleted, r.PathValue("id"))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /guides/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		writeJSON(w, domain.Export{ID: "e1", Format: in["format"], FileURL: "/exports/e1." + in["format"]})
	})
	mux.HandleFunc("GET /guides/{id}/quiz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, quiz)
	})
	mux.HandleFunc("POST /guides/{id}/quiz/results", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		b.mu.Lock()
		b.answered = in
		b.mu.Unlock()
		g := domain.Guide{BookID: r.PathValue("id"), Progress: domain.Progress{QuizResults: map[int]int{}}}
		g.Content.Quiz = quiz
		for k, v := range in {
			q, _ := strconv.Atoi(k)
			g.Progress.QuizResults[q] = v
		}
		writeJSON(w, g)
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// isolate points state and config at temp dirs so tests never touch $HOME.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvTimeout, "")
}

// execute runs the CLI with args. Flag values are reset first because
// cobra keeps them between executions.
func execute(t *testing.T, b *backend, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--api-url", b.URL))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if s, ok := f.Value.(pflag.SliceValue); ok {
			_ = s.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := execute(t, newBackend(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bookpilot dev")
}

func TestLoginWhoamiLogout(t *testing.T) {
	isolate(t)
	b := newBackend(t)

	out, err := execute(t, b, "login", "reader@example.com", "-p", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as reader@example.com (reader, API token stored)")

	out, err = execute(t, b, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "reader@example.com")

	out, err = execute(t, b, "books")
	require.NoError(t, err)
	for _, want := range []string{"Deep Work", "View Guide", "Walden", "Retry Processing"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, []string{"Bearer tok"}, b.auth)

	out, err = execute(t, b, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	_, err = execute(t, b, "whoami")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestLoginWithWrongPasswordStillSignsIn(t *testing.T) {
	isolate(t)
	out, err := execute(t, newBackend(t), "login", "reader@example.com", "-p", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "no API token")
}

func TestCommandsRequireSession(t *testing.T) {
	isolate(t)
	b := newBackend(t)
	for _, args := range [][]string{
		{"books"},
		{"upload", "book.txt"},
		{"process", "b1"},
		{"delete", "b1"},
		{"export", "b1"},
		{"quiz", "b1"},
	} {
		t.Run(args[0], func(t *testing.T) {
			_, err := execute(t, b, args...)
			assert.ErrorIs(t, err, errNotSignedIn)
		})
	}
	assert.Empty(t, b.auth)
}

func TestUpload(t *testing.T) {
	isolate(t)
	b := newBackend(t)
	_, err := execute(t, b, "login", "reader@example.com")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "walden.txt")
	require.NoError(t, os.WriteFile(path, []byte("Walden\n\nI went to the woods."), 0o644))

	out, err := execute(t, b, "upload", path, "--author", "Thoreau")
	require.NoError(t, err)
	assert.Contains(t, out, `Uploaded "Walden"`)
	require.Len(t, b.uploads, 1)
	assert.Equal(t, map[string]string{"title": "Walden", "author": "Thoreau", "file": "walden.txt"}, b.uploads[0])
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	isolate(t)
	b := newBackend(t)
	_, err := execute(t, b, "login", "reader@example.com")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "notes.docx")
	require.NoError(t, os.WriteFile(path, []byte("notes"), 0o644))

	_, err = execute(t, b, "upload", path, "--title", "Notes")
	require.ErrorIs(t, err, bookfile.ErrUnsupportedType)
	assert.Empty(t, b.uploads)
}

func TestBookCommands(t *testing.T) {
	isolate(t)
	b := newBackend(t)
	_, err := execute(t, b, "login", "reader@example.com")
	require.NoError(t, err)

	out, err := execute(t, b, "process", "b2")
	require.NoError(t, err)
	assert.Contains(t, out, "Walden: Processing")

	out, err = execute(t, b, "delete", "b2")
	require.NoError(t, err)
	assert.Contains(t, out, "Book deleted.")
	assert.Equal(t, []string{"b2"}, b.deleted)

	out, err = execute(t, b, "export", "b1")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported pdf: /exports/e1.pdf")
}

func TestQuiz(t *testing.T) {
	isolate(t)
	b := newBackend(t)
	_, err := execute(t, b, "login", "reader@example.com")
	require.NoError(t, err)

	out, err := execute(t, b, "quiz", "b1")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Deep work is?")
	assert.Contains(t, out, "2) Replaceable")

	out, err = execute(t, b, "quiz", "b1", "--answer", "1,1")
	require.NoError(t, err)
	assert.Contains(t, out, "Score: 1 / 2")
	assert.Equal(t, map[string]int{"0": 0, "1": 0}, b.answered)
}

func TestSetup(t *testing.T) {
	isolate(t)

	svc, err := setup(options{apiURL: "https://books.example.com/api/v1/", verbose: true})
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, "https://books.example.com/api/v1", svc.client.BaseURL())
	assert.True(t, svc.cfg.Verbose)
	assert.False(t, svc.session.Loading())

	_, err = setup(options{apiURL: "ftp://books.example.com"})
	assert.Error(t, err)
}
