package server

import (
	"errors"
	"net/http"

	"protospace/internal/api"
	"protospace/internal/core"
)

func (s *Server) handleListPrototypes(w http.ResponseWriter, r *http.Request) {
	prototypes, err := s.service.Listing(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIPrototypes(prototypes))
}

func (s *Server) handleGetPrototype(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	detail, err := s.service.Detail(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(err, ErrCodePrototypeNotFound))
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIDetail(detail))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	page, err := s.service.UserPage(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(err, ErrCodeUserNotFound))
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UserPage{
		User:       toAPIUser(page.User),
		Prototypes: toAPIPrototypes(page.Prototypes),
	})
}

func (s *Server) handleAPICreatePrototype(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if !identity.Authenticated() {
		s.writeOutcome(w, r, core.Outcome{Kind: core.OutcomeDenied, Err: core.ErrUnauthenticated}, 0, nil)
		return
	}
	fields, err := s.prototypeFieldsFromRequest(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	outcome, err := s.service.SubmitCreate(r.Context(), identity, fields)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeOutcome(w, r, outcome, http.StatusCreated, s.prototypeBody(r, outcome))
}

func (s *Server) handleAPIUpdatePrototype(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	fields, err := s.prototypeFieldsFromRequest(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	outcome, err := s.service.SubmitUpdate(r.Context(), identityFrom(r), id, fields)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeOutcome(w, r, outcome, http.StatusOK, s.prototypeBody(r, outcome))
}

func (s *Server) handleAPIDeletePrototype(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	outcome, err := s.service.SubmitDelete(r.Context(), identityFrom(r), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeOutcome(w, r, outcome, http.StatusNoContent, nil)
}

func (s *Server) handleAPICreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	var req api.CommentCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	outcome, err := s.service.SubmitComment(r.Context(), identityFrom(r), id, req.Text)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeOutcome(w, r, outcome, http.StatusCreated, s.detailBody(r, outcome))
}

// writeOutcome maps a protocol outcome onto the JSON API. Forbidden and
// not-found denials share one 404 response. body renders a committed outcome.
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, outcome core.Outcome, successStatus int, body func() (any, error)) {
	switch outcome.Kind {
	case core.OutcomeDenied:
		if errors.Is(outcome.Err, core.ErrUnauthenticated) {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorizedCode(outcome.Err, ErrCodeUnauthorized))
			return
		}
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(core.ErrNotFound, ErrCodePrototypeNotFound))
		return
	case core.OutcomeRejected:
		resp := api.ErrorResponse{Violations: outcome.Violations.Strings()}
		if outcome.Render == core.ViewNewForm || outcome.Render == core.ViewEditForm {
			resp.Form = &api.FormEcho{
				Title:     outcome.Form.Title,
				CatchCopy: outcome.Form.CatchCopy,
				Concept:   outcome.Form.Concept,
			}
		}
		s.writeErrorResponse(w, r, http.StatusUnprocessableEntity, unprocessable(outcome.Err, ErrCodeValidationFailed), resp)
		return
	}

	if successStatus == http.StatusNoContent || body == nil {
		w.WriteHeader(successStatus)
		return
	}
	payload, err := body()
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, successStatus, payload)
}

func (s *Server) prototypeBody(r *http.Request, outcome core.Outcome) func() (any, error) {
	return func() (any, error) {
		detail, err := s.service.Detail(r.Context(), outcome.PrototypeID)
		if err != nil {
			return nil, err
		}
		return toAPIPrototype(detail.Prototype), nil
	}
}

func (s *Server) detailBody(r *http.Request, outcome core.Outcome) func() (any, error) {
	return func() (any, error) {
		detail, err := s.service.Detail(r.Context(), outcome.PrototypeID)
		if err != nil {
			return nil, err
		}
		return toAPIDetail(detail), nil
	}
}
