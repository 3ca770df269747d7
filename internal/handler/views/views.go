// Package views renders the server-side HTML pages as templ components.
package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	appI18n "github.com/sjlee-edu/mathtutor/internal/i18n"
	"github.com/sjlee-edu/mathtutor/internal/model"
)

// SolveView is everything the problem-solving page can show after an action.
type SolveView struct {
	Question      *model.ActiveQuestion
	Text          string
	ImageAnalysis string
	ImageAttached bool
	Feedback      string
	Hint          string
	Submitted     bool
	Error         string
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// layout wraps a page body in the shared document frame. navBar controls the
// home/logout bar shown on authenticated pages.
func layout(navBar bool, body func(ctx context.Context, w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := appI18n.T(ctx, "AppTitle")
		base := model.BasePathFromContext(ctx)
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; }
.topbar { display: flex; justify-content: flex-end; gap: .5rem; }
.error { color: #b00020; }
.notice { background: #eef6ff; padding: .75rem; border-radius: .5rem; white-space: pre-wrap; }
.warn { background: #fff3cd; padding: .75rem; border-radius: .5rem; }
textarea { width: 100%%; }
button { cursor: pointer; }
</style>
</head>
<body>
`, esc(title)); err != nil {
			return err
		}
		if navBar {
			csrf := model.CSRFTokenFromContext(ctx)
			if _, err := fmt.Fprintf(w, `<div class="topbar">
<form method="get" action="%s/"><button type="submit">🏠 %s</button></form>
<form method="post" action="%s/logout"><input type="hidden" name="csrf_token" value="%s"><button type="submit">🔒 %s</button></form>
</div>
`, base, esc(appI18n.T(ctx, "Home")), base, esc(csrf), esc(appI18n.T(ctx, "Logout"))); err != nil {
				return err
			}
		}
		if err := body(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

// LoginPage renders the login form, with an inline error when errMsg is set.
func LoginPage(errMsg string) templ.Component {
	return layout(false, func(ctx context.Context, w io.Writer) error {
		base := model.BasePathFromContext(ctx)
		csrf := model.CSRFTokenFromContext(ctx)
		if _, err := fmt.Fprintf(w, `<h1>🧮 %s</h1>
<form method="post" action="%s/login">
<input type="hidden" name="csrf_token" value="%s">
<p><label>%s <input type="text" name="student_id" autofocus></label></p>
<p><label>%s <input type="password" name="password"></label></p>
<p><button type="submit">%s</button></p>
</form>
`, esc(appI18n.T(ctx, "AppTitle")), base, esc(csrf),
			esc(appI18n.T(ctx, "StudentID")), esc(appI18n.T(ctx, "Password")), esc(appI18n.T(ctx, "LoginButton"))); err != nil {
			return err
		}
		if errMsg != "" {
			if _, err := fmt.Fprintf(w, `<p class="error">%s</p>`+"\n", esc(errMsg)); err != nil {
				return err
			}
		}
		return nil
	})
}

// MenuPage renders the workflow menu.
func MenuPage(studentID string) templ.Component {
	return layout(true, func(ctx context.Context, w io.Writer) error {
		base := model.BasePathFromContext(ctx)
		welcome := appI18n.Td(ctx, "Welcome", map[string]any{"StudentID": studentID})
		_, err := fmt.Fprintf(w, `<p class="notice">%s</p>
<p>
<a href="%s/survey"><button>📝 %s</button></a>
<a href="%s/solve"><button>🔎 %s</button></a>
</p>
`, esc(welcome), base, esc(appI18n.T(ctx, "MenuSurvey")), base, esc(appI18n.T(ctx, "MenuSolve")))
		return err
	})
}

// SurveyPage renders the four Likert sliders plus the comment box. saved
// shows the confirmation after a successful submit.
func SurveyPage(saved bool, errMsg string) templ.Component {
	return layout(true, func(ctx context.Context, w io.Writer) error {
		base := model.BasePathFromContext(ctx)
		csrf := model.CSRFTokenFromContext(ctx)
		if _, err := fmt.Fprintf(w, `<h2>📝 %s</h2>
<form method="post" action="%s/survey">
<input type="hidden" name="csrf_token" value="%s">
`, esc(appI18n.T(ctx, "MenuSurvey")), base, esc(csrf)); err != nil {
			return err
		}
		for i := 1; i <= 4; i++ {
			label := appI18n.Td(ctx, "SurveyScale", map[string]any{
				"Question": appI18n.T(ctx, fmt.Sprintf("SurveyQ%d", i)),
			})
			if _, err := fmt.Fprintf(w, `<p><label>%s <input type="range" name="q%d" min="1" max="5" value="3"></label></p>
`, esc(label), i); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `<p><label>%s<br><textarea name="comment" rows="5"></textarea></label></p>
<p><button type="submit">%s</button></p>
</form>
`, esc(appI18n.T(ctx, "SurveyComment")), esc(appI18n.T(ctx, "SurveySubmit"))); err != nil {
			return err
		}
		if saved {
			if _, err := fmt.Fprintf(w, `<p class="notice">%s</p>`+"\n", esc(appI18n.T(ctx, "SurveySaved"))); err != nil {
				return err
			}
		}
		if errMsg != "" {
			if _, err := fmt.Fprintf(w, `<p class="error">%s</p>`+"\n", esc(errMsg)); err != nil {
				return err
			}
		}
		return nil
	})
}

// SolvePage renders the problem, the answer form, and whatever the last
// action produced.
func SolvePage(v SolveView) templ.Component {
	return layout(true, func(ctx context.Context, w io.Writer) error {
		base := model.BasePathFromContext(ctx)
		csrf := model.CSRFTokenFromContext(ctx)

		if _, err := fmt.Fprintf(w, "<h2>🔎 %s</h2>\n", esc(appI18n.T(ctx, "MenuSolve"))); err != nil {
			return err
		}

		if v.Question == nil {
			if v.Error != "" {
				_, err := fmt.Fprintf(w, `<p class="error">%s</p>`+"\n", esc(v.Error))
				return err
			}
			_, err := fmt.Fprintf(w, `<p class="warn">%s</p>`+"\n", esc(appI18n.T(ctx, "NoActiveQuestion")))
			return err
		}

		if _, err := fmt.Fprintf(w, `<h3>📘 %s</h3>
<p class="notice">%s</p>
<form method="post" enctype="multipart/form-data">
<input type="hidden" name="csrf_token" value="%s">
<p><label>%s <input type="file" name="image" accept="image/jpeg,image/png"></label></p>
<p><label>%s<br><textarea name="answer" rows="8">%s</textarea></label></p>
<p>
<button type="submit" formaction="%s/solve/feedback">%s</button>
<button type="submit" formaction="%s/solve/hint">%s</button>
<button type="submit" formaction="%s/solve/submit">%s</button>
</p>
</form>
`, esc(appI18n.T(ctx, "CurrentQuestion")), esc(v.Question.Text), esc(csrf),
			esc(appI18n.T(ctx, "UploadLabel")),
			esc(appI18n.T(ctx, "TextAnswer")), esc(v.Text),
			base, esc(appI18n.T(ctx, "FeedbackButton")),
			base, esc(appI18n.T(ctx, "HintButton")),
			base, esc(appI18n.T(ctx, "SubmitButton"))); err != nil {
			return err
		}

		if v.ImageAnalysis != "" {
			if _, err := fmt.Fprintf(w, `<h4>🧠 %s</h4>
<p class="notice">%s</p>
`, esc(appI18n.T(ctx, "ImageAnalysis")), esc(v.ImageAnalysis)); err != nil {
				return err
			}
		}
		if v.Feedback != "" {
			if v.ImageAttached {
				if _, err := fmt.Fprintf(w, `<p><small>✅ %s</small></p>`+"\n", esc(appI18n.T(ctx, "VisionIncluded"))); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, `<p class="notice">%s</p>`+"\n", esc(v.Feedback)); err != nil {
				return err
			}
		}
		if v.Hint != "" {
			if _, err := fmt.Fprintf(w, `<p class="notice">%s</p>`+"\n", esc(v.Hint)); err != nil {
				return err
			}
		}
		if v.Submitted {
			if _, err := fmt.Fprintf(w, `<p class="notice">%s</p>`+"\n", esc(appI18n.T(ctx, "Submitted"))); err != nil {
				return err
			}
		}
		if v.Error != "" {
			if _, err := fmt.Fprintf(w, `<p class="error">%s</p>`+"\n", esc(v.Error)); err != nil {
				return err
			}
		}
		return nil
	})
}
