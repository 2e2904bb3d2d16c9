package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	internalauth "protospace/internal/auth"
	"protospace/internal/blobstore"
	"protospace/internal/core"
	"protospace/internal/models"
	"protospace/internal/store"
)

const testPassword = "secret1"

type testEnv struct {
	srv     *Server
	handler http.Handler
	store   *store.Store
	tokens  *internalauth.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blobstore.NewLocalCAS(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	tokens, err := internalauth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New("127.0.0.1:0", Options{
		Service:         core.NewService(st, blobs, logger),
		Users:           st,
		Tokens:          tokens,
		UploadMaxBytes:  1 << 20,
		MultipartMemory: 1 << 20,
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testEnv{srv: srv, handler: srv.Handler(), store: st, tokens: tokens}
}

func (e *testEnv) createUser(t *testing.T, email, name string) *models.User {
	t.Helper()
	user, err := e.srv.authService.Register(context.Background(), internalauth.Registration{
		Email:                email,
		Password:             testPassword,
		PasswordConfirmation: testPassword,
		Name:                 name,
		Profile:              name + " builds prototypes",
		Occupation:           "Engineer",
		Position:             "Lead",
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func (e *testEnv) sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	result, err := e.srv.authService.StartSession(context.Background(), user, time.Now().UTC())
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return &http.Cookie{Name: sessionCookieName, Value: result.Token}
}

func (e *testEnv) bearer(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := e.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// formPart is one multipart part; isFile marks image parts.
type formPart struct {
	name     string
	value    string
	filename string
	file     []byte
	isFile   bool
	// mediaType is the declared part type; file parts default to image/png.
	mediaType string
}

func textPart(name, value string) formPart {
	return formPart{name: name, value: value}
}

func filePart(filename string, data []byte) formPart {
	return typedFilePart(filename, "image/png", data)
}

func typedFilePart(filename, mediaType string, data []byte) formPart {
	return formPart{name: "image", filename: filename, file: data, isFile: true, mediaType: mediaType}
}

// multipartBody encodes parts the way a browser does, including file parts
// with an empty filename for "no file chosen".
func multipartBody(t *testing.T, parts ...formPart) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, part := range parts {
		if !part.isFile {
			if err := mw.WriteField(part.name, part.value); err != nil {
				t.Fatalf("write field: %v", err)
			}
			continue
		}
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="` + part.name + `"; filename="` + part.filename + `"`}
		if part.mediaType != "" {
			header["Content-Type"] = []string{part.mediaType}
		}
		w, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := w.Write(part.file); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func multipartRequest(t *testing.T, method, target string, parts ...formPart) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-one")

func fullPrototypeParts(title string) []formPart {
	return []formPart{
		textPart("title", title),
		textPart("catch_copy", "B"),
		textPart("concept", "C"),
		filePart("one.png", pngBytes),
	}
}

// seedPrototype creates a prototype through the API as owner and returns it.
func (e *testEnv) seedPrototype(t *testing.T, owner *models.User, title string) *models.Prototype {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/v1/prototypes", fullPrototypeParts(title)...)
	req.Header.Set("Authorization", e.bearer(t, owner))
	w := e.do(req)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed prototype: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created prototype: %v", err)
	}
	p, err := e.store.GetPrototype(context.Background(), created.ID)
	if err != nil || p == nil {
		t.Fatalf("load seeded prototype: %v", err)
	}
	return p
}

func decodeJSONBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}
