package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	internalauth "protospace/internal/auth"
	"protospace/internal/core"
	"protospace/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	pageIndex    = "index"
	pageNew      = "new"
	pageEdit     = "edit"
	pageShow     = "show"
	pageUser     = "user"
	pageSignUp   = "sign_up"
	pageSignIn   = "sign_in"
	pageNotFound = "not_found"
)

var pageNames = []string{pageIndex, pageNew, pageEdit, pageShow, pageUser, pageSignUp, pageSignIn, pageNotFound}

// pageData is the root value every page template renders.
type pageData struct {
	Title       string
	CurrentUser *models.User
	Data        any
}

type listingView struct {
	Prototypes []models.Prototype
}

type prototypeFormView struct {
	Action      string
	PrototypeID string
	Form        core.FormEcho
	Errors      []string
}

type detailView struct {
	Detail        *core.Detail
	SignedIn      bool
	IsOwner       bool
	CommentErrors []string
}

type userView struct {
	Page *core.UserPage
}

type signUpView struct {
	Form   internalauth.Registration
	Errors []string
}

type signInView struct {
	Email  string
	Errors []string
}

// parsePages builds one template set per page, each sharing the layout.
func parsePages() (map[string]*template.Template, error) {
	base, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		page, err := clone.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = page
	}
	return pages, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.renderInternalError(w, r, fmt.Errorf("unknown page %q", page))
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pageData{
		Title:       title,
		CurrentUser: currentUser(r),
		Data:        data,
	}); err != nil {
		s.renderInternalError(w, r, fmt.Errorf("render %s: %w", page, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, pageNotFound, "Not found", nil)
}

func (s *Server) renderInternalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log().Error("request error", "status", http.StatusInternalServerError, "method", r.Method, "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()), "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.NotFoundHandler()
	}
	fileServer := http.StripPrefix("/static/", http.FileServerFS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

var fieldLabels = map[core.Field]string{
	core.FieldTitle:     "Title",
	core.FieldCatchCopy: "Catch copy",
	core.FieldConcept:   "Concept",
	core.FieldImage:     "Image",
	core.FieldText:      "Text",
}

// violationMessages renders violations as full sentences in report order.
func violationMessages(violations core.Violations) []string {
	out := make([]string, 0, len(violations))
	for _, field := range violations {
		label, ok := fieldLabels[field]
		if !ok {
			label = string(field)
		}
		out = append(out, label+" can't be blank")
	}
	return out
}
