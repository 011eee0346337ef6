// Package domain holds the resources exchanged with the BookPilot API.
package domain

import "slices"

// User is the identity held by the client session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// BookStatus is the processing stage of an uploaded book.
type BookStatus string

const (
	StatusUploaded   BookStatus = "uploaded"
	StatusProcessing BookStatus = "processing"
	StatusProcessed  BookStatus = "processed"
	StatusError      BookStatus = "error"
)

// Book is an uploaded book. Status transitions happen server-side only.
type Book struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	Status    BookStatus `json:"status"`
	FileType  string     `json:"file_type,omitempty"`
	FileSize  int64      `json:"file_size,omitempty"`
	CreatedAt Time       `json:"created_at"`
	UpdatedAt Time       `json:"updated_at"`
}

// HasGuide reports whether a guide can be shown for the book.
func (b Book) HasGuide() bool {
	return b.Status == StatusProcessed
}

// Chapter is one chapter of a generated guide.
type Chapter struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Questions []string `json:"questions"`
	Task      string   `json:"task"`
}

// Synthesis is the whole-book wrap-up of a guide.
type Synthesis struct {
	KeyTakeaways []string `json:"key_takeaways"`
	ActionPlan   string   `json:"action_plan"`
}

// QuizQuestion is a multiple choice question with the index of its correct option.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// IsCorrect reports whether option is the correct answer.
func (q QuizQuestion) IsCorrect(option int) bool {
	return option == q.CorrectAnswer
}

// CorrectOption returns the text of the correct option, or "" if the index is out of range.
func (q QuizQuestion) CorrectOption() string {
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectAnswer]
}

// GuideContent is the structured study material generated for a book.
type GuideContent struct {
	Title     string         `json:"title"`
	Author    string         `json:"author,omitempty"`
	TOC       []string       `json:"toc"`
	Chapters  []Chapter      `json:"chapters"`
	Synthesis Synthesis      `json:"synthesis"`
	Quiz      []QuizQuestion `json:"quiz"`
}

// Progress is the per-user mutable state of a guide.
type Progress struct {
	CompletedChapters []int       `json:"completed_chapters"`
	CompletedTasks    []int       `json:"completed_tasks,omitempty"`
	QuizResults       map[int]int `json:"quiz_results,omitempty"`
}

// IsCompleted reports whether chapter is in the completed set.
func (p Progress) IsCompleted(chapter int) bool {
	return slices.Contains(p.CompletedChapters, chapter)
}

// WithCompleted returns the completed set with chapter added once.
// The receiver's slice is never modified.
func (p Progress) WithCompleted(chapter int) []int {
	out := slices.Clone(p.CompletedChapters)
	if !slices.Contains(out, chapter) {
		out = append(out, chapter)
	}
	return out
}

// Answer returns the recorded option for question q.
func (p Progress) Answer(q int) (int, bool) {
	opt, ok := p.QuizResults[q]
	return opt, ok
}

// Guide couples generated content with the reader's progress.
type Guide struct {
	ID        string       `json:"id,omitempty"`
	BookID    string       `json:"book_id,omitempty"`
	Content   GuideContent `json:"json_content"`
	Progress  Progress     `json:"progress"`
	CreatedAt Time         `json:"created_at"`
	UpdatedAt Time         `json:"updated_at"`
}

// Percentage returns round(100*completed/total), or 0 when there is nothing to complete.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	// integer half-up rounding; float division misses exact .5 cases
	return (200*completed + total) / (2 * total)
}

// CompletionPercentage is the share of chapters marked complete.
func (g Guide) CompletionPercentage() int {
	return Percentage(len(g.Progress.CompletedChapters), len(g.Content.Chapters))
}

// ProgressUpdate is the body of a progress patch. Nil fields are left untouched server-side.
type ProgressUpdate struct {
	CompletedChapters []int       `json:"completed_chapters,omitempty"`
	CompletedTasks    []int       `json:"completed_tasks,omitempty"`
	QuizResults       map[int]int `json:"quiz_results,omitempty"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Delivery tracks a locally sent message against the server.
type Delivery int

const (
	Sent Delivery = iota
	Pending
	Failed
)

// ChatMessage is one entry of a book's conversation.
type ChatMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp Time   `json:"timestamp"`

	Delivery Delivery `json:"-"`
}

// Export describes an exported guide document.
type Export struct {
	ID        string `json:"id"`
	GuideID   string `json:"guide_id"`
	Format    string `json:"format"`
	FileURL   string `json:"file_url"`
	CreatedAt Time   `json:"created_at"`
}

// Token is the bearer credential issued by the auth endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
