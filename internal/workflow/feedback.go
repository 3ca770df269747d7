// Package workflow holds the user-facing flows: feedback, hint, final
// submission, and the survey. Each flow runs as one synchronous sequence of
// gateway calls and appends exactly one audit row on success.
package workflow

import (
	"context"
	"strings"

	"github.com/sjlee-edu/mathtutor/internal/model"
)

// Inference is the slice of the LLM client the solve flows need.
type Inference interface {
	AnalyzeImage(ctx context.Context, img model.ImageUpload) (string, error)
	Feedback(ctx context.Context, instruction, combined string, img *model.ImageUpload) (string, error)
	Hint(ctx context.Context, prompt string) (string, error)
}

// PromptSource reads the template pair from the prompt sheet.
type PromptSource interface {
	Prompts(ctx context.Context) (model.PromptTemplates, error)
}

// AnswerSink appends audit rows to the answers sheet.
type AnswerSink interface {
	AppendAnswer(ctx context.Context, row model.AuditRow) error
}

// Solver drives the problem-solving page: feedback, hints, final submission.
type Solver struct {
	prompts       PromptSource
	answers       AnswerSink
	llm           Inference
	questionLabel string
}

// NewSolver wires the solve flows. questionLabel is the fixed literal
// substituted for the {question} placeholder.
func NewSolver(prompts PromptSource, answers AnswerSink, llm Inference, questionLabel string) *Solver {
	return &Solver{prompts: prompts, answers: answers, llm: llm, questionLabel: questionLabel}
}

// FeedbackResult is what the student sees after a feedback request.
type FeedbackResult struct {
	// Text is the first paragraph of the model's response.
	Text string
	// ImageAnalysis is the vision model's description of the uploaded work,
	// empty when no image was attached.
	ImageAnalysis string
}

// RequestFeedback runs the full feedback flow for one student action:
// analyze the image if present, compose the combined input, fill the
// selected template, call the model, and append one audit row.
func (s *Solver) RequestFeedback(ctx context.Context, studentID string, q *model.ActiveQuestion, in model.SolveInput) (*FeedbackResult, error) {
	if q == nil {
		return nil, ErrNoActiveQuestion
	}

	analysis := ""
	if in.Image != nil {
		var err error
		analysis, err = s.llm.AnalyzeImage(ctx, *in.Image)
		if err != nil {
			return nil, gatewayErr("analyze image", err)
		}
	}

	trimmed := strings.TrimSpace(in.Text)
	combined := composeInput(analysis, trimmed)

	tpl, err := s.prompts.Prompts(ctx)
	if err != nil {
		return nil, gatewayErr("read prompt templates", err)
	}

	instruction, err := buildInstruction(tpl, trimmed, s.questionLabel, combined)
	if err != nil {
		return nil, err
	}

	raw, err := s.llm.Feedback(ctx, instruction, combined, in.Image)
	if err != nil {
		return nil, gatewayErr("request feedback", err)
	}
	feedback := firstParagraph(raw)

	kind := model.EventFeedback
	if in.Image != nil {
		kind = model.EventFeedbackImage
	}
	row := model.NewAuditRow(studentID, kind, normalizeLines(in.Text), feedback)
	if err := s.answers.AppendAnswer(ctx, row); err != nil {
		return nil, gatewayErr("append audit row", err)
	}

	return &FeedbackResult{Text: feedback, ImageAnalysis: analysis}, nil
}

// RequestHint asks the hint model for help with the current problem and logs
// one audit row with an empty student text.
func (s *Solver) RequestHint(ctx context.Context, studentID string, q *model.ActiveQuestion) (string, error) {
	if q == nil {
		return "", ErrNoActiveQuestion
	}

	tpl, err := s.prompts.Prompts(ctx)
	if err != nil {
		return "", gatewayErr("read prompt templates", err)
	}
	if tpl.Blank == "" {
		return "", ErrTemplateMissing
	}

	hint, err := s.llm.Hint(ctx, tpl.Blank+"\n문제: "+s.questionLabel)
	if err != nil {
		return "", gatewayErr("request hint", err)
	}

	row := model.NewAuditRow(studentID, model.EventHint, "", hint)
	if err := s.answers.AppendAnswer(ctx, row); err != nil {
		return "", gatewayErr("append audit row", err)
	}
	return hint, nil
}

// SubmitFinal records the final submission. No inference call is made.
func (s *Solver) SubmitFinal(ctx context.Context, studentID string, q *model.ActiveQuestion, text string) error {
	if q == nil {
		return ErrNoActiveQuestion
	}
	row := model.NewAuditRow(studentID, model.EventFinalSubmit, normalizeLines(text), "")
	if err := s.answers.AppendAnswer(ctx, row); err != nil {
		return gatewayErr("append audit row", err)
	}
	return nil
}

// buildInstruction selects the template purely on whether the student typed
// anything, then substitutes the two placeholders. An empty required
// template fails the request.
func buildInstruction(tpl model.PromptTemplates, trimmedText, questionLabel, combined string) (string, error) {
	selected := tpl.Blank
	if trimmedText != "" {
		selected = tpl.FirstTry
	}
	if selected == "" {
		return "", ErrTemplateMissing
	}
	r := strings.NewReplacer("{question}", questionLabel, "{answer}", combined)
	return r.Replace(selected), nil
}

func composeInput(analysis, trimmedText string) string {
	return "이미지 해석 결과:\n" + analysis + "\n\n텍스트 풀이:\n" + trimmedText
}

// firstParagraph returns the text up to the first blank-line separator.
func firstParagraph(s string) string {
	first, _, _ := strings.Cut(s, "\n\n")
	return strings.TrimSpace(first)
}

// normalizeLines flattens line breaks to spaces so the text fits one cell.
func normalizeLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", " ")
}
