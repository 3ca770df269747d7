package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sjlee-edu/mathtutor/internal/handler/views"
	"github.com/sjlee-edu/mathtutor/internal/model"
)

func (h *Handler) handleSurveyPage(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if err := h.store.SetPage(sess.Token, model.PageSurvey); err != nil {
		slog.Error("failed to set page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	render(w, r, views.SurveyPage(false, ""))
}

func (h *Handler) handleSurveySubmit(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if sess.Page != model.PageSurvey {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}

	var resp model.SurveyResponse
	for i := range resp.Responses {
		n, err := strconv.Atoi(r.FormValue("q" + strconv.Itoa(i+1)))
		if err != nil {
			http.Error(w, "invalid survey response", http.StatusBadRequest)
			return
		}
		resp.Responses[i] = n
	}
	resp.Comment = r.FormValue("comment")

	if err := h.survey.Submit(r.Context(), sess.StudentID, resp); err != nil {
		render(w, r, views.SurveyPage(false, errorMessage(r, err)))
		return
	}
	render(w, r, views.SurveyPage(true, ""))
}
