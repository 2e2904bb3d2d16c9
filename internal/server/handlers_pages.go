package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"protospace/internal/core"
)

const signInPath = "/users/sign_in"

// redirectPath maps an outcome's redirect view to a URL.
func redirectPath(outcome core.Outcome) string {
	switch outcome.Redirect {
	case core.ViewDetail:
		if outcome.PrototypeID != "" {
			return "/prototypes/" + url.PathEscape(outcome.PrototypeID)
		}
		return "/"
	case core.ViewSignIn:
		return signInPath
	default:
		return "/"
	}
}

func seeOther(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	prototypes, err := s.service.Listing(r.Context())
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageIndex, "", listingView{Prototypes: prototypes})
}

func (s *Server) handleNewPrototype(w http.ResponseWriter, r *http.Request) {
	if !identityFrom(r).Authenticated() {
		seeOther(w, r, signInPath)
		return
	}
	s.render(w, r, http.StatusOK, pageNew, "New Prototype", prototypeFormView{Action: "/prototypes"})
}

func (s *Server) handleCreatePrototype(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if !identity.Authenticated() {
		seeOther(w, r, signInPath)
		return
	}
	fields, err := s.prototypeFieldsFromRequest(w, r)
	if err != nil {
		s.writeFormError(w, r, err)
		return
	}

	outcome, err := s.service.SubmitCreate(r.Context(), identity, fields)
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	s.presentOutcome(w, r, outcome)
}

func (s *Server) handleShowPrototype(w http.ResponseWriter, r *http.Request) {
	s.renderDetail(w, r, http.StatusOK, r.PathValue("id"), nil)
}

func (s *Server) handleEditPrototype(w http.ResponseWriter, r *http.Request) {
	stored, outcome, err := s.service.LoadForEdit(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	if stored == nil {
		seeOther(w, r, redirectPath(outcome))
		return
	}
	s.render(w, r, http.StatusOK, pageEdit, "Edit Prototype", prototypeFormView{
		Action:      editAction(stored.ID),
		PrototypeID: stored.ID,
		Form:        core.EchoOf(*stored),
	})
}

func (s *Server) handleUpdatePrototype(w http.ResponseWriter, r *http.Request) {
	fields, err := s.prototypeFieldsFromRequest(w, r)
	if err != nil {
		s.writeFormError(w, r, err)
		return
	}

	outcome, err := s.service.SubmitUpdate(r.Context(), identityFrom(r), r.PathValue("id"), fields)
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	s.presentOutcome(w, r, outcome)
}

func (s *Server) handleDeletePrototype(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.service.SubmitDelete(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	s.presentOutcome(w, r, outcome)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		s.writeFormError(w, r, classifyFormError(err))
		return
	}

	outcome, err := s.service.SubmitComment(r.Context(), identityFrom(r), r.PathValue("id"), r.PostForm.Get("text"))
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	s.presentOutcome(w, r, outcome)
}

func (s *Server) handleShowUser(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.UserPage(r.Context(), r.PathValue("id"))
	if errors.Is(err, core.ErrNotFound) {
		s.renderNotFound(w, r)
		return
	}
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageUser, page.User.Name, userView{Page: page})
}

// imageResponseType serves vetted image formats inline. Anything else, such
// as rows written before uploads were sniffed, downloads as opaque bytes.
func imageResponseType(stored string) (contentType, disposition string) {
	if core.IsImageMediaType(stored) {
		return stored, "inline"
	}
	return "application/octet-stream", "attachment"
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	image, err := s.service.OpenImage(r.Context(), r.PathValue("id"))
	if errors.Is(err, core.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}
	defer image.Reader.Close()

	contentType, disposition := imageResponseType(image.MediaType)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	w.Header().Set("Cache-Control", "no-cache")
	if image.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(image.SizeBytes, 10))
	}
	params := map[string]string{}
	if image.Filename != "" {
		params["filename"] = image.Filename
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, params))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, image.Reader); err != nil {
		s.log().Warn("stream image", "prototype_id", r.PathValue("id"), "error", err)
	}
}

// presentOutcome redirects committed and denied outcomes and re-renders
// rejected ones with status 422.
func (s *Server) presentOutcome(w http.ResponseWriter, r *http.Request, outcome core.Outcome) {
	if outcome.Kind != core.OutcomeRejected {
		seeOther(w, r, redirectPath(outcome))
		return
	}

	messages := violationMessages(outcome.Violations)
	switch outcome.Render {
	case core.ViewNewForm:
		s.render(w, r, http.StatusUnprocessableEntity, pageNew, "New Prototype", prototypeFormView{
			Action: "/prototypes",
			Form:   outcome.Form,
			Errors: messages,
		})
	case core.ViewEditForm:
		s.render(w, r, http.StatusUnprocessableEntity, pageEdit, "Edit Prototype", prototypeFormView{
			Action:      editAction(outcome.PrototypeID),
			PrototypeID: outcome.PrototypeID,
			Form:        outcome.Form,
			Errors:      messages,
		})
	case core.ViewDetail:
		s.renderDetail(w, r, http.StatusUnprocessableEntity, outcome.PrototypeID, messages)
	default:
		s.renderInternalError(w, r, fmt.Errorf("no page for rejected outcome %q", outcome.Render))
	}
}

func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, status int, id string, commentErrors []string) {
	detail, err := s.service.Detail(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		s.renderNotFound(w, r)
		return
	}
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}

	identity := identityFrom(r)
	s.render(w, r, status, pageShow, detail.Prototype.Title, detailView{
		Detail:        detail,
		SignedIn:      identity.Authenticated(),
		IsOwner:       core.Authorize(identity, &detail.Prototype) == core.Allow,
		CommentErrors: commentErrors,
	})
}

// writeFormError answers a malformed browser submission.
func (s *Server) writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromError(err)
	if status >= http.StatusInternalServerError {
		s.renderInternalError(w, r, err)
		return
	}
	s.log().Debug("form rejected", "status", status, "path", r.URL.Path, "error", err)
	http.Error(w, err.Error(), status)
}

func editAction(id string) string {
	return "/prototypes/" + url.PathEscape(id) + "?_method=PATCH"
}
