package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:3000")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:3000" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		if _, err := ListenAddr("http://0.0.0.0:3000"); err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:3000")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:3000" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	if w.Header().Get(requestIDHeader) != "" {
		t.Fatal("health checks should bypass request logging")
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/v1/prototypes", nil))
	minted := w.Header().Get(requestIDHeader)
	if _, err := uuid.Parse(minted); err != nil {
		t.Fatalf("expected minted uuid request id, got %q", minted)
	}

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/v1/prototypes", nil)
	req.Header.Set(requestIDHeader, inbound)
	w = env.do(req)
	if got := w.Header().Get(requestIDHeader); got != inbound {
		t.Fatalf("expected inbound request id %q, got %q", inbound, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/prototypes", nil)
	req.Header.Set(requestIDHeader, "not a uuid")
	w = env.do(req)
	if got := w.Header().Get(requestIDHeader); got == "not a uuid" {
		t.Fatal("expected malformed request id to be replaced")
	}
}

func TestMethodOverride(t *testing.T) {
	var gotMethod string
	srv := &Server{}
	handler := srv.withMethodOverride(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))

	for target, want := range map[string]string{
		"/prototypes/pt-1?_method=PATCH":  http.MethodPatch,
		"/prototypes/pt-1?_method=delete": http.MethodDelete,
		"/prototypes/pt-1?_method=GET":    http.MethodPost,
		"/prototypes/pt-1":                http.MethodPost,
	} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, target, nil))
		if gotMethod != want {
			t.Fatalf("%s: expected %s, got %s", target, want, gotMethod)
		}
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/prototypes/pt-1?_method=DELETE", nil))
	if gotMethod != http.MethodGet {
		t.Fatalf("expected GET to stay GET, got %s", gotMethod)
	}
}

func TestValidateID(t *testing.T) {
	for id, want := range map[string]bool{
		"pt-abc123":   true,
		"us-0a1b2c3d": true,
		"":            false,
		"pt-":         false,
		"p-abc":       false,
		"PT-ABC":      false,
		"pt-../x":     false,
	} {
		if got := validateID(id); got != want {
			t.Fatalf("validateID(%q)=%v want %v", id, got, want)
		}
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New("127.0.0.1:0", Options{}); err == nil {
		t.Fatal("expected missing service error")
	}
}
