// Package sheets talks to the Google spreadsheet that backs the system.
// Four logical tables live in one document: survey and answers are
// append-only sinks, prompt and questions are read-only configuration.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/sjlee-edu/mathtutor/internal/model"
)

const (
	surveySheet    = "survey"
	answersSheet   = "answers"
	promptSheet    = "prompt"
	questionsSheet = "questions"
)

// Gateway is the typed spreadsheet interface, one method per logical table.
type Gateway interface {
	// Prompts reads the template pair from prompt!B1 (first try) and
	// prompt!B2 (blank). Read fresh on every call.
	Prompts(ctx context.Context) (model.PromptTemplates, error)
	// Questions returns all rows of the questions sheet in sheet order.
	Questions(ctx context.Context) ([]model.QuestionRow, error)
	// Answers returns the full audit log from the answers sheet.
	Answers(ctx context.Context) ([]model.AuditRow, error)
	// AppendAnswer appends one audit row to the answers sheet.
	AppendAnswer(ctx context.Context, row model.AuditRow) error
	// AppendSurvey appends one survey response row to the survey sheet.
	AppendSurvey(ctx context.Context, studentID string, resp model.SurveyResponse) error
}

// Client implements Gateway against the Google Sheets API.
type Client struct {
	svc     *sheetsapi.Service
	sheetID string
}

// New authenticates with service-account JSON credentials and binds to one
// spreadsheet document.
func New(ctx context.Context, credentialsJSON []byte, sheetID string) (*Client, error) {
	if sheetID == "" {
		return nil, fmt.Errorf("sheet id is required")
	}
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, sheetID: sheetID}, nil
}

func (c *Client) Prompts(ctx context.Context) (model.PromptTemplates, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.sheetID, promptSheet+"!B1:B2").Context(ctx).Do()
	if err != nil {
		return model.PromptTemplates{}, fmt.Errorf("read prompt sheet: %w", err)
	}
	var tpl model.PromptTemplates
	if len(resp.Values) > 0 {
		tpl.FirstTry = cellString(resp.Values[0], 0)
	}
	if len(resp.Values) > 1 {
		tpl.Blank = cellString(resp.Values[1], 0)
	}
	return tpl, nil
}

func (c *Client) Questions(ctx context.Context) ([]model.QuestionRow, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.sheetID, questionsSheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read questions sheet: %w", err)
	}
	return parseQuestions(resp.Values), nil
}

func (c *Client) Answers(ctx context.Context) ([]model.AuditRow, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.sheetID, answersSheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read answers sheet: %w", err)
	}
	var rows []model.AuditRow
	for _, v := range resp.Values {
		rows = append(rows, model.AuditRow{
			Timestamp:   cellString(v, 0),
			StudentID:   cellString(v, 1),
			Kind:        model.EventKind(cellString(v, 2)),
			StudentText: cellString(v, 3),
			ResultText:  cellString(v, 4),
		})
	}
	return rows, nil
}

func (c *Client) AppendAnswer(ctx context.Context, row model.AuditRow) error {
	values := []any{row.Timestamp, row.StudentID, string(row.Kind), row.StudentText, row.ResultText}
	return c.appendRow(ctx, answersSheet, values)
}

func (c *Client) AppendSurvey(ctx context.Context, studentID string, resp model.SurveyResponse) error {
	values := []any{time.Now().Format(time.RFC3339), studentID}
	for _, r := range resp.Responses {
		values = append(values, r)
	}
	values = append(values, resp.Comment)
	return c.appendRow(ctx, surveySheet, values)
}

func (c *Client) appendRow(ctx context.Context, sheet string, values []any) error {
	vr := &sheetsapi.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Append(c.sheetID, sheet+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s sheet: %w", sheet, err)
	}
	return nil
}

// parseQuestions maps sheet rows into question rows using the header row,
// so column order in the spreadsheet is free to change.
func parseQuestions(values [][]any) []model.QuestionRow {
	if len(values) < 2 {
		return nil
	}
	idx := make(map[string]int)
	for i, h := range values[0] {
		if s, ok := h.(string); ok {
			idx[s] = i
		}
	}
	col := func(row []any, name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return cellString(row, i)
	}

	var rows []model.QuestionRow
	for _, v := range values[1:] {
		rows = append(rows, model.QuestionRow{
			Text:          col(v, "문제"),
			Rubric:        col(v, "채점기준"),
			ModelAnswer:   col(v, "모범답안"),
			CorrectAnswer: col(v, "정답"),
			Active:        col(v, "active"),
		})
	}
	return rows
}

func cellString(row []any, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}
