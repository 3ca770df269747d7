package sheets

import (
	"context"

	"github.com/sjlee-edu/mathtutor/internal/model"
)

// activeFlag is the literal cell value that marks a question as active.
// The sheet stores it as a string, not a boolean.
const activeFlag = "TRUE"

// QuestionSource is the slice of the gateway the resolver needs.
type QuestionSource interface {
	Questions(ctx context.Context) ([]model.QuestionRow, error)
}

// Resolver picks the currently active question from the questions sheet.
type Resolver struct {
	src QuestionSource
}

// NewResolver creates a resolver over a question source.
func NewResolver(src QuestionSource) *Resolver {
	return &Resolver{src: src}
}

// Resolve re-reads the questions sheet and returns the first row whose
// active flag equals "TRUE", or nil when no row qualifies. Uniqueness is not
// enforced; sheet edits take effect on the next call.
func (r *Resolver) Resolve(ctx context.Context) (*model.ActiveQuestion, error) {
	rows, err := r.src.Questions(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Active != activeFlag {
			continue
		}
		return &model.ActiveQuestion{
			Text:          row.Text,
			Rubric:        row.Rubric,
			ModelAnswer:   row.ModelAnswer,
			CorrectAnswer: row.CorrectAnswer,
		}, nil
	}
	return nil, nil
}
