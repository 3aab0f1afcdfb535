package http

import (
	"context"
	"encoding/json"
	"net/http"

	"beer-quiz-service/internal/app"
	"beer-quiz-service/internal/domain"
	"beer-quiz-service/pkg/logger"
)

const maxBodyBytes = 4 << 10

// APIHandler exposes the quiz flow as JSON over HTTP.
type APIHandler struct {
	service *app.QuizService
	log     logger.Logger
}

func NewAPIHandler(service *app.QuizService, log logger.Logger) *APIHandler {
	if log == nil {
		log = logger.Get()
	}
	return &APIHandler{service: service, log: log.Named("api")}
}

type emailRequest struct {
	Email string `json:"email"`
}

type answerRequest struct {
	Value int `json:"value"`
}

type commandResponse struct {
	Error   *errorBody   `json:"error,omitempty"`
	Session *sessionView `json:"session,omitempty"`
}

func (h *APIHandler) getContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.Content(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "load content", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, commandResponse{Error: &errorBody{Code: "content_unavailable", Message: "quiz content unavailable"}})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		AllowedDomain string `json:"allowedDomain"`
		domain.QuizContent
	}{h.service.AllowedDomain(), content})
}

func (h *APIHandler) createSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Start(r.Context())
	h.respond(w, r, http.StatusCreated, session, err)
}

func (h *APIHandler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Get(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, session, err)
}

func (h *APIHandler) submitEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.service.SubmitEmail(r.Context(), r.PathValue("id"), req.Email)
	h.respond(w, r, http.StatusOK, session, err)
}

func (h *APIHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.service.Answer(r.Context(), r.PathValue("id"), req.Value)
	h.respond(w, r, http.StatusOK, session, err)
}

func (h *APIHandler) resetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Reset(r.Context(), r.PathValue("id"))
	h.respond(w, r, http.StatusOK, session, err)
}

func (h *APIHandler) endSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.End(r.Context(), r.PathValue("id")); err != nil {
		h.respond(w, r, 0, domain.QuizSession{}, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond writes the session view, plus an error body when the command failed.
// Domain errors still carry the updated session so clients can render it.
func (h *APIHandler) respond(w http.ResponseWriter, r *http.Request, okStatus int, session domain.QuizSession, err error) {
	var view *sessionView
	if session.ID != "" {
		v := h.view(r.Context(), session)
		view = &v
	}
	if err == nil {
		writeJSON(w, okStatus, view)
		return
	}
	status, body := newErrorBody(err, session.Message)
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "command failed", logger.String("path", r.URL.Path), logger.Error(err))
	}
	writeJSON(w, status, commandResponse{Error: &body, Session: view})
}

func (h *APIHandler) view(ctx context.Context, session domain.QuizSession) sessionView {
	content, err := h.service.Content(ctx)
	if err != nil {
		h.log.Warn(ctx, "content unavailable for view", logger.Error(err))
	}
	return newSessionView(session, content, h.service.AllowedDomain())
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: &errorBody{Code: "bad_request", Message: "invalid JSON body"}})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
