//go:build !gui

package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/metcalfc/bookpilot/internal/pages"
)

var errNotSignedIn = errors.New("not signed in; run 'bookpilot login EMAIL' first")

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Sign in; with --password also fetch an API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		page := pages.NewLogin(svc.session, svc.client.Auth, svc.logger)
		if _, err := page.Submit(cmd.Context(), args[0], password); err != nil {
			return err
		}
		return printSignedIn(cmd)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register EMAIL",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		page := pages.NewRegister(svc.session, svc.client.Auth, svc.logger)
		if _, err := page.Submit(cmd.Context(), args[0], password); err != nil {
			return fmt.Errorf("%s: %w", page.Banner(), err)
		}
		return printSignedIn(cmd)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		pages.Logout(svc.session)
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !svc.session.IsAuthenticated() {
			return errNotSignedIn
		}
		return printSignedIn(cmd)
	},
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List your books and their processing status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page := pages.NewBookList(svc.session, svc.client.Books, svc.logger)
		defer page.Leave()
		target, err := page.Load(cmd.Context())
		if err != nil {
			return err
		}
		if target != nil {
			return errNotSignedIn
		}
		if page.Empty() {
			fmt.Fprintln(cmd.OutOrStdout(), "You haven't uploaded any books yet. Try 'bookpilot upload FILE'.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "TITLE", "AUTHOR", "STATUS", "NEXT STEP")
		for _, b := range page.Books() {
			t.Row(b.ID, b.Title, b.Author, pages.StatusLabel(b.Status), pages.ActionFor(b).Label)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.String())
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a PDF, EPUB or TXT book (max 50MB)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		author, _ := cmd.Flags().GetString("author")

		page := pages.NewUpload(svc.session, svc.client.Books, svc.logger)
		defer page.Leave()
		if page.Enter(cmd.Context()) != nil {
			return errNotSignedIn
		}
		page.SetTitle(title)
		page.SetAuthor(author)
		if err := page.ChooseFile(args[0]); err != nil {
			return err
		}

		form := page.Form()
		if _, err := page.Submit(cmd.Context()); err != nil {
			return fmt.Errorf("%s: %w", page.Form().Banner, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %q. Run 'bookpilot books' to follow its processing.\n", form.Title)
		return nil
	},
}

var processCmd = &cobra.Command{
	Use:   "process ID",
	Short: "Start (or retry) processing a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !svc.session.IsAuthenticated() {
			return errNotSignedIn
		}
		book, err := svc.client.Books.Process(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", book.Title, pages.StatusLabel(book.Status))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a book and its guide",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !svc.session.IsAuthenticated() {
			return errNotSignedIn
		}
		if err := svc.client.Books.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Book deleted.")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Export a book's guide",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !svc.session.IsAuthenticated() {
			return errNotSignedIn
		}
		format, _ := cmd.Flags().GetString("format")
		out, err := svc.client.Guides.Export(cmd.Context(), args[0], format)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s: %s\n", out.Format, out.FileURL)
		return nil
	},
}

var quizCmd = &cobra.Command{
	Use:   "quiz ID",
	Short: "Show a guide's quiz, or submit answers with --answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !svc.session.IsAuthenticated() {
			return errNotSignedIn
		}
		answers, _ := cmd.Flags().GetIntSlice("answer")
		if len(answers) > 0 {
			results := make(map[int]int, len(answers))
			for q, opt := range answers {
				results[q] = opt - 1
			}
			guide, err := svc.client.Guides.SubmitQuizResults(cmd.Context(), args[0], results)
			if err != nil {
				return err
			}
			correct := 0
			for q, opt := range guide.Progress.QuizResults {
				if q < len(guide.Content.Quiz) && guide.Content.Quiz[q].IsCorrect(opt) {
					correct++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Score: %d / %d\n", correct, len(guide.Content.Quiz))
			return nil
		}

		quiz, err := svc.client.Guides.Quiz(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for i, q := range quiz {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, q.Question)
			for j, opt := range q.Options {
				fmt.Fprintf(cmd.OutOrStdout(), "   %d) %s\n", j+1, opt)
			}
		}
		return nil
	},
}

func init() {
	quizCmd.Flags().IntSlice("answer", nil, "Chosen option per question, in order (1-based), e.g. --answer 2,1,3")
	loginCmd.Flags().StringP("password", "p", "", "Password for the API token (optional)")
	registerCmd.Flags().StringP("password", "p", "", "Password for the API token (optional)")
	uploadCmd.Flags().StringP("title", "t", "", "Book title (default: from the file)")
	uploadCmd.Flags().StringP("author", "a", "", "Book author")
	exportCmd.Flags().String("format", "pdf", "Export format")
}

func printSignedIn(cmd *cobra.Command) error {
	user := svc.session.User()
	if user == nil {
		return errNotSignedIn
	}
	auth := "no API token"
	if svc.session.Token() != "" {
		auth = "API token stored"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s, %s)\n", user.Email, user.Name, auth)
	return nil
}
