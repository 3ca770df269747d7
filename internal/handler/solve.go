package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sjlee-edu/mathtutor/internal/handler/views"
	appI18n "github.com/sjlee-edu/mathtutor/internal/i18n"
	"github.com/sjlee-edu/mathtutor/internal/model"
)

const maxImageBytes = 10 << 20

var allowedImageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// limitBody caps POST bodies at maxImageBytes. It must run before the CSRF
// middleware, which is the first thing to parse the form.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleSolvePage(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if err := h.store.SetPage(sess.Token, model.PageSolve); err != nil {
		slog.Error("failed to set page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	v := views.SolveView{}
	q, err := h.resolver.Resolve(r.Context())
	if err != nil {
		slog.Error("failed to resolve active question", "error", err)
		v.Error = appI18n.T(r.Context(), "ErrGateway")
	}
	v.Question = q
	render(w, r, views.SolvePage(v))
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	h.solveAction(w, r, func(sess *model.Session, q *model.ActiveQuestion, v *views.SolveView) {
		in := model.SolveInput{Text: v.Text}
		img, errMsg := h.readImage(r)
		if errMsg != "" {
			v.Error = errMsg
			return
		}
		in.Image = img

		res, err := h.solver.RequestFeedback(r.Context(), sess.StudentID, q, in)
		if err != nil {
			v.Error = errorMessage(r, err)
			return
		}
		v.Feedback = res.Text
		v.ImageAnalysis = res.ImageAnalysis
		v.ImageAttached = img != nil
	})
}

func (h *Handler) handleHint(w http.ResponseWriter, r *http.Request) {
	h.solveAction(w, r, func(sess *model.Session, q *model.ActiveQuestion, v *views.SolveView) {
		hint, err := h.solver.RequestHint(r.Context(), sess.StudentID, q)
		if err != nil {
			v.Error = errorMessage(r, err)
			return
		}
		v.Hint = hint
	})
}

func (h *Handler) handleFinalSubmit(w http.ResponseWriter, r *http.Request) {
	h.solveAction(w, r, func(sess *model.Session, q *model.ActiveQuestion, v *views.SolveView) {
		if err := h.solver.SubmitFinal(r.Context(), sess.StudentID, q, v.Text); err != nil {
			v.Error = errorMessage(r, err)
			return
		}
		v.Submitted = true
	})
}

// solveAction is the shared harness for the three solve-page actions: guard
// the page state, resolve the active question, run the action, re-render.
// None of the actions changes the session page.
func (h *Handler) solveAction(w http.ResponseWriter, r *http.Request, action func(*model.Session, *model.ActiveQuestion, *views.SolveView)) {
	sess := model.SessionFromContext(r.Context())
	if sess.Page != model.PageSolve {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil && err != http.ErrNotMultipart {
		http.Error(w, "form too large", http.StatusBadRequest)
		return
	}

	v := views.SolveView{Text: r.FormValue("answer")}

	q, err := h.resolver.Resolve(r.Context())
	if err != nil {
		slog.Error("failed to resolve active question", "error", err)
		v.Error = appI18n.T(r.Context(), "ErrGateway")
		render(w, r, views.SolvePage(v))
		return
	}
	v.Question = q
	if q == nil {
		// Nothing active: warn, make no gateway calls.
		render(w, r, views.SolvePage(v))
		return
	}

	action(sess, q, &v)
	render(w, r, views.SolvePage(v))
}

// readImage pulls the optional uploaded image out of the multipart form.
// The second return value is a localized error message for rejected files.
func (h *Handler) readImage(r *http.Request) (*model.ImageUpload, string) {
	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return nil, ""
	}
	if err != nil {
		return nil, ""
	}
	defer file.Close()

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	if !allowedImageMIMEs[strings.ToLower(mime)] {
		return nil, appI18n.T(r.Context(), "ErrImageType")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded image", "error", err)
		return nil, appI18n.T(r.Context(), "ErrGateway")
	}
	if len(data) == 0 {
		return nil, ""
	}

	return &model.ImageUpload{Data: data, MIME: mime, Name: header.Filename}, ""
}
