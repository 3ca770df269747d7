package model

import (
	"context"
	"time"
)

// Page identifies which workflow a logged-in student is currently on.
type Page string

const (
	// PageNone is the menu; no workflow selected yet.
	PageNone Page = ""
	// PageSurvey is the pre/post survey workflow.
	PageSurvey Page = "survey"
	// PageSolve is the problem-solving workflow.
	PageSolve Page = "solve"
)

// Valid reports whether p is one of the known pages.
func (p Page) Valid() bool {
	switch p {
	case PageNone, PageSurvey, PageSolve:
		return true
	}
	return false
}

// Session is a logged-in student's state. A stored session implies the
// student is authenticated; deleting it logs the student out.
type Session struct {
	Token     string
	StudentID string
	Page      Page
	CreatedAt time.Time
}

// ActiveQuestion is the problem currently flagged for students in the
// questions sheet. It is derived on every read, never stored locally.
type ActiveQuestion struct {
	Text          string
	Rubric        string
	ModelAnswer   string
	CorrectAnswer string
}

// QuestionRow is one raw row of the questions sheet.
type QuestionRow struct {
	Text          string
	Rubric        string
	ModelAnswer   string
	CorrectAnswer string
	Active        string
}

// PromptTemplates is the pair of prompt-construction strings from the prompt
// sheet. FirstTry is used when the student typed a solution, Blank otherwise.
// Both may contain the {question} and {answer} placeholders.
type PromptTemplates struct {
	FirstTry string
	Blank    string
}

// EventKind labels an audit row. The values are the literal strings the
// spreadsheet has always carried; they are data, not UI text.
type EventKind string

const (
	EventFeedback      EventKind = "피드백"
	EventFeedbackImage EventKind = "피드백(이미지)"
	EventHint          EventKind = "힌트"
	EventFinalSubmit   EventKind = "최종제출"
)

// AuditRow is one append-only record in the answers sheet.
type AuditRow struct {
	Timestamp   string    `json:"timestamp"`
	StudentID   string    `json:"student_id"`
	Kind        EventKind `json:"event_kind"`
	StudentText string    `json:"student_text"`
	ResultText  string    `json:"result_text"`
}

// NewAuditRow stamps an audit row with the current time.
func NewAuditRow(studentID string, kind EventKind, studentText, resultText string) AuditRow {
	return AuditRow{
		Timestamp:   time.Now().Format(time.RFC3339),
		StudentID:   studentID,
		Kind:        kind,
		StudentText: studentText,
		ResultText:  resultText,
	}
}

// SurveyResponse is one submission of the four Likert questions plus an
// optional free-text comment.
type SurveyResponse struct {
	Responses [4]int
	Comment   string
}

// ImageUpload is a student-uploaded photo of handwritten work.
type ImageUpload struct {
	Data []byte
	MIME string
	Name string
}

// SolveInput is what the student hands to the feedback workflow.
type SolveInput struct {
	Text  string
	Image *ImageUpload
}

type sessionCtxKey struct{}

// ContextWithSession stores the student session in the request context.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext retrieves the session from context, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	QuestionLabel string // literal problem label substituted for {question}
	BasePath      string // URL prefix for sub-path deployments
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}
