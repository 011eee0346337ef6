//go:build gui

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metcalfc/bookpilot/internal/domain"
	"github.com/metcalfc/bookpilot/internal/pages"
)

// viewer is the desktop window: books on the left, the open guide on the right.
type viewer struct {
	svc *services
	ctx context.Context
	app fyne.App
	win fyne.Window

	books *pages.BookList
	guide *pages.Guide

	bookList    *widget.List
	chapterList *widget.List
	title       *widget.Label
	chapter     *widget.RichText
	progress    *widget.ProgressBar
	status      *widget.Label
	markButton  *widget.Button
}

func newViewer(ctx context.Context, svc *services, a fyne.App) *viewer {
	v := &viewer{
		svc:   svc,
		ctx:   ctx,
		app:   a,
		win:   a.NewWindow("BookPilot"),
		books: pages.NewBookList(svc.session, svc.client.Books, svc.logger),
	}
	v.build()
	return v
}

func (v *viewer) build() {
	v.bookList = widget.NewList(
		func() int { return len(v.books.Books()) },
		func() fyne.CanvasObject {
			return container.NewVBox(
				widget.NewLabelWithStyle("Title", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
				widget.NewLabel("Status"),
			)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			books := v.books.Books()
			if id >= len(books) {
				return
			}
			b := books[id]
			vbox := obj.(*fyne.Container)
			vbox.Objects[0].(*widget.Label).SetText(b.Title)
			vbox.Objects[1].(*widget.Label).SetText(pages.StatusLabel(b.Status) + " · " + pages.ActionFor(b).Label)
		},
	)
	v.bookList.OnSelected = func(id widget.ListItemID) {
		books := v.books.Books()
		if id >= len(books) {
			return
		}
		v.activate(books[id])
	}

	v.chapterList = widget.NewList(
		func() int { return v.guideView().ChapterCount() },
		func() fyne.CanvasObject { return widget.NewLabel("Chapter") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			gv := v.guideView()
			if id >= gv.ChapterCount() {
				return
			}
			label := gv.Guide.Content.Chapters[id].Title
			if gv.Guide.Progress.IsCompleted(id) {
				label = "✓ " + label
			}
			obj.(*widget.Label).SetText(label)
		},
	)
	v.chapterList.OnSelected = func(id widget.ListItemID) {
		if v.guide != nil {
			v.guide.SelectChapter(id)
			v.showChapter()
		}
	}

	v.title = widget.NewLabelWithStyle("Select a processed book", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	v.chapter = widget.NewRichTextFromMarkdown("")
	v.chapter.Wrapping = fyne.TextWrapWord
	v.progress = widget.NewProgressBar()
	v.status = widget.NewLabel("")
	v.markButton = widget.NewButtonWithIcon("Mark complete", theme.ConfirmIcon(), v.markComplete)
	v.markButton.Disable()
	export := widget.NewButtonWithIcon("Export PDF", theme.DocumentSaveIcon(), v.export)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.ViewRefreshIcon(), v.loadBooks),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.LogoutIcon(), v.logout),
	)

	guidePane := container.NewBorder(
		container.NewVBox(v.title, v.progress),
		container.NewHBox(v.markButton, export, v.status),
		nil, nil,
		container.NewHSplit(v.chapterList, container.NewVScroll(v.chapter)),
	)
	split := container.NewHSplit(
		container.NewBorder(widget.NewLabel("My Books"), nil, nil, nil, v.bookList),
		guidePane,
	)
	split.Offset = 0.25

	v.win.SetContent(container.NewBorder(toolbar, nil, nil, nil, split))
	v.win.Resize(fyne.NewSize(1100, 700))

	v.win.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		if v.guide == nil {
			return
		}
		switch key.Name {
		case fyne.KeyLeft:
			v.guide.PrevChapter()
			v.showChapter()
		case fyne.KeyRight:
			v.guide.NextChapter()
			v.showChapter()
		case fyne.KeyM:
			v.markComplete()
		case fyne.KeyQ:
			v.app.Quit()
		}
	})
}

func (v *viewer) guideView() pages.GuideView {
	if v.guide == nil {
		return pages.GuideView{}
	}
	return v.guide.View()
}

func (v *viewer) start() {
	if v.svc.session.IsAuthenticated() {
		v.loadBooks()
	} else {
		v.showLogin()
	}
	v.win.ShowAndRun()
}

func (v *viewer) loadBooks() {
	go func() {
		target, err := v.books.Load(v.ctx)
		fyne.Do(func() {
			if target != nil {
				v.showLogin()
				return
			}
			if err != nil {
				v.status.SetText(v.books.Banner())
			} else if v.books.Empty() {
				v.status.SetText("You haven't uploaded any books yet. Upload one with 'bookpilot upload FILE'.")
			}
			v.bookList.Refresh()
		})
	}()
}

func (v *viewer) activate(b domain.Book) {
	switch pages.ActionFor(b).Kind {
	case pages.ActionViewGuide:
		v.openGuide(b.ID)
	case pages.ActionRetry:
		go func() {
			_ = v.books.Retry(v.ctx, b.ID)
			fyne.Do(func() {
				v.status.SetText(v.books.Notice())
				v.bookList.Refresh()
			})
		}()
	default:
		v.status.SetText(b.Title + ": " + pages.ActionFor(b).Label)
	}
}

func (v *viewer) openGuide(bookID string) {
	if v.guide != nil {
		v.guide.Leave()
	}
	guide := pages.NewGuide(v.svc.session, bookID, v.svc.client.Guides, v.svc.client.Books, v.svc.logger)
	v.guide = guide
	v.title.SetText("Loading guide...")
	v.markButton.Disable()

	go func() {
		_, err := guide.Load(v.ctx)
		fyne.Do(func() {
			if guide != v.guide {
				return
			}
			switch guide.Status() {
			case pages.StatusNotFound:
				v.title.SetText("The guide you're looking for doesn't exist or is still being processed.")
			case pages.StatusError:
				v.title.SetText(guide.Banner())
				v.svc.logger.Debug("guide load failed", zap.Error(err))
			default:
				v.showGuide()
			}
		})
	}()
}

func (v *viewer) showGuide() {
	gv := v.guideView()
	title := gv.Guide.Content.Title
	if gv.Guide.Content.Author != "" {
		title += " by " + gv.Guide.Content.Author
	}
	v.title.SetText(title)
	v.markButton.Enable()
	v.chapterList.Refresh()
	v.showChapter()
}

func (v *viewer) showChapter() {
	gv := v.guideView()
	v.progress.SetValue(float64(gv.Percentage) / 100)
	v.status.SetText(fmt.Sprintf("%d%% complete", gv.Percentage))
	if n := gv.Notice; n != "" {
		v.status.SetText(n)
	}
	v.chapterList.Refresh()

	ch, ok := gv.CurrentChapter()
	if !ok {
		v.chapter.ParseMarkdown("_This guide has no chapters._")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n%s\n\n", ch.Title, ch.Summary)
	if len(ch.Questions) > 0 {
		sb.WriteString("## Reflection Questions\n\n")
		for _, q := range ch.Questions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
		sb.WriteString("\n")
	}
	if ch.Task != "" {
		fmt.Fprintf(&sb, "## Action Task\n\n%s\n", ch.Task)
	}
	v.chapter.ParseMarkdown(sb.String())
}

func (v *viewer) markComplete() {
	guide := v.guide
	if guide == nil {
		return
	}
	save := guide.StageComplete()
	if save == nil {
		return
	}
	v.showChapter()
	go func() {
		_ = save(v.ctx)
		fyne.Do(func() {
			if guide == v.guide {
				v.showChapter()
				v.chapterList.Select(guide.View().Chapter)
			}
		})
	}()
}

func (v *viewer) export() {
	guide := v.guide
	if guide == nil {
		return
	}
	go func() {
		_, _ = guide.Export(v.ctx)
		fyne.Do(func() { v.status.SetText(guide.Notice()) })
	}()
}

func (v *viewer) logout() {
	if v.guide != nil {
		v.guide.Leave()
		v.guide = nil
	}
	v.books.Leave()
	pages.Logout(v.svc.session)
	v.title.SetText("Select a processed book")
	v.chapter.ParseMarkdown("")
	v.progress.SetValue(0)
	v.bookList.Refresh()
	v.chapterList.Refresh()
	v.showLogin()
}

func (v *viewer) showLogin() {
	email := widget.NewEntry()
	email.SetPlaceHolder("you@example.com")
	password := widget.NewPasswordEntry()
	password.SetPlaceHolder("optional")

	items := []*widget.FormItem{
		widget.NewFormItem("Email", email),
		widget.NewFormItem("Password", password),
	}
	dialog.ShowForm("Sign in to BookPilot", "Sign in", "Quit", items, func(ok bool) {
		if !ok {
			v.app.Quit()
			return
		}
		login := pages.NewLogin(v.svc.session, v.svc.client.Auth, v.svc.logger)
		go func() {
			_, err := login.Submit(v.ctx, email.Text, password.Text)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowInformation("Sign in", login.Banner(), v.win)
					v.showLogin()
					return
				}
				v.loadBooks()
			})
		}()
	}, v.win)
}

var opts options

var rootCmd = &cobra.Command{
	Use:          "bookpilot-gui",
	Short:        "BookPilot desktop viewer",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := setup(opts)
		if err != nil {
			return err
		}
		defer svc.Close()

		a := app.NewWithID("io.bookpilot.viewer")
		newViewer(cmd.Context(), svc, a).start()
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file")
	rootCmd.Flags().StringVar(&opts.apiURL, "api-url", "", "API base URL (or set BOOKPILOT_API_URL)")
	rootCmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (0: none)")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = versionString()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
