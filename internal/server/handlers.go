package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/kasefra/landing/internal/contact"
	apperrors "github.com/kasefra/landing/internal/errors"
	"github.com/kasefra/landing/internal/site"
)

// contactResponse is the JSON view of a visitor's form.
type contactResponse struct {
	Phase          contact.Phase          `json:"phase"`
	Message        string                 `json:"message,omitempty"`
	Form           contact.SubmissionForm `json:"form"`
	SubmitDisabled bool                   `json:"submit_disabled"`
	Error          *errorBody             `json:"error,omitempty"`
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

type fieldUpdate struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) pageData(r *http.Request) site.PageData {
	return site.PageData{
		Title:        s.cfg.Site.Title,
		Description:  s.cfg.Site.Description,
		ContactEmail: s.cfg.Site.ContactEmail,
		Nonce:        GetNonceFromContext(r.Context()),
		Year:         time.Now().Year(),
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data site.PageData) {
	templ.Handler(site.Page(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	s.renderPage(w, r, http.StatusOK, s.pageData(r).WithSnapshot(s.snapshot(r)))
}

// snapshot returns the session's form state, or an empty idle form for a
// visitor without a session.
func (s *Server) snapshot(r *http.Request) contact.Snapshot {
	if form, ok := s.sessions.Lookup(r); ok {
		return form.Snapshot()
	}
	return contact.Snapshot{}
}

// handleFormSubmit is the no-script path: apply all five fields, submit, and
// redirect back to the contact section.
func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	var posted contact.SubmissionForm
	for _, f := range contact.Fields {
		posted = posted.With(f, r.PostForm.Get(f.String()))
	}

	form := s.sessions.FromRequest(w, r)
	err := s.submit(r, form, posted)
	w.Header().Set("Cache-Control", "no-store")

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		snap := form.Snapshot()
		data := s.pageData(r).WithSnapshot(snap)
		data.Missing = site.MissingFromNames(snap.Form.MissingFields())
		s.renderPage(w, r, http.StatusUnprocessableEntity, data)
	case apperrors.KindConflict:
		s.renderPage(w, r, http.StatusConflict, s.pageData(r).WithSnapshot(form.Snapshot()))
	default:
		http.Redirect(w, r, "/#"+site.ContactAnchor, http.StatusSeeOther)
	}
}

func (s *Server) handleAPISubmit(w http.ResponseWriter, r *http.Request) {
	var payload contact.SubmissionForm
	if err := decodeJSON(w, r, &payload); err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidPayload, "invalid JSON body", nil)
		return
	}

	form := s.sessions.FromRequest(w, r)
	err := s.submit(r, form, payload)
	resp := s.contactResponse(form.Snapshot())

	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, resp)
	case apperrors.KindOf(err) == apperrors.KindValidation:
		resp.Error = &errorBody{
			Code:    apperrors.ErrCodeRequiredField,
			Message: "Please fill in the required fields.",
			Fields:  resp.Form.MissingFields(),
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, resp)
	case apperrors.KindOf(err) == apperrors.KindConflict:
		resp.Error = &errorBody{
			Code:    apperrors.ErrCodeSubmissionPending,
			Message: "A submission is already in progress.",
		}
		s.writeJSON(w, http.StatusConflict, resp)
	default:
		resp.Error = &errorBody{
			Code:    apperrors.ErrCodeSubmissionFailed,
			Message: site.ErrorMessage(s.cfg.Site.ContactEmail),
		}
		s.writeJSON(w, http.StatusBadGateway, resp)
	}
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var update fieldUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidPayload, "invalid JSON body", nil)
		return
	}

	field, err := contact.ParseField(update.Field)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeUnknownField, err.Error(), nil)
		return
	}

	form := s.sessions.FromRequest(w, r)
	form.UpdateField(field, update.Value)
	s.writeJSON(w, http.StatusOK, s.contactResponse(form.Snapshot()))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	s.writeJSON(w, http.StatusOK, s.contactResponse(s.snapshot(r)))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"submissions":  s.metrics.Stats(),
		"metrics":      s.metrics.Collect(),
		"sessions":     s.sessions.Len(),
		"rate_limiter": s.limiter.GetStats(),
	})
}

// submit applies posted and runs the form's submission detached from the
// request's cancellation, so a visitor navigating away does not abort a lead
// that is already on its way to the provider.
func (s *Server) submit(r *http.Request, form *contact.ContactForm, posted contact.SubmissionForm) error {
	err := form.SubmitForm(context.WithoutCancel(r.Context()), posted)

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		s.metrics.RecordRejected()
		s.errHandler.Handle(r.Context(), err)
	case apperrors.KindConflict:
		s.metrics.RecordConflict()
		s.errHandler.Handle(r.Context(), err)
	}
	return err
}

func (s *Server) contactResponse(snap contact.Snapshot) contactResponse {
	return contactResponse{
		Phase:          snap.Phase,
		Message:        site.StatusMessage(snap.Phase, s.cfg.Site.ContactEmail),
		Form:           snap.Form,
		SubmitDisabled: snap.Phase == contact.PhaseSubmitting,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), err, "Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string, fields []string) {
	s.writeJSON(w, status, map[string]*errorBody{
		"error": {Code: code, Message: message, Fields: fields},
	})
}
