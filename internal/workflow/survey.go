package workflow

import (
	"context"

	"github.com/sjlee-edu/mathtutor/internal/model"
)

// SurveySink appends survey rows to the survey sheet, a distinct sink from
// the answers audit log.
type SurveySink interface {
	AppendSurvey(ctx context.Context, studentID string, resp model.SurveyResponse) error
}

// Survey collects the four Likert responses plus a free-text comment.
type Survey struct {
	sink SurveySink
}

// NewSurvey wires the survey flow.
func NewSurvey(sink SurveySink) *Survey {
	return &Survey{sink: sink}
}

// Submit validates the Likert range and appends one row. Repeat submissions
// append repeat rows; there is no deduplication. The comment may be empty.
func (s *Survey) Submit(ctx context.Context, studentID string, resp model.SurveyResponse) error {
	for _, r := range resp.Responses {
		if r < 1 || r > 5 {
			return ErrLikertOutOfRange
		}
	}
	if err := s.sink.AppendSurvey(ctx, studentID, resp); err != nil {
		return gatewayErr("append survey row", err)
	}
	return nil
}
