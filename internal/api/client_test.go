package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPTimeoutFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})

	t.Run("duration format", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "45s")
		if got := httpTimeoutFromEnv(); got != 45*time.Second {
			t.Fatalf("expected 45s timeout, got %v", got)
		}
	})

	t.Run("integer seconds", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "25")
		if got := httpTimeoutFromEnv(); got != 25*time.Second {
			t.Fatalf("expected 25s timeout, got %v", got)
		}
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "invalid")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})
}

func TestClientMultipartOmitsAbsentFields(t *testing.T) {
	var gotFields map[string][]string
	var gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/v1/prototypes/pt-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer header, got %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotFields = r.MultipartForm.Value
		if files := r.MultipartForm.File["image"]; len(files) == 1 {
			gotFile = files[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Prototype{ID: "pt-1", Title: "A2"})
	}))
	defer srv.Close()

	empty := ""
	title := "A2"
	client := NewClient(srv.URL).WithToken("tok")
	resp, err := client.UpdatePrototype(context.Background(), "pt-1", PrototypeForm{
		Title:   &title,
		Concept: &empty,
		Image:   &ImagePart{Filename: "shot.png", Data: strings.NewReader("png")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if resp.ID != "pt-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if _, ok := gotFields["catch_copy"]; ok {
		t.Fatalf("expected catch_copy to be omitted, got %v", gotFields)
	}
	if v, ok := gotFields["concept"]; !ok || v[0] != "" {
		t.Fatalf("expected empty concept to be sent, got %v", gotFields)
	}
	if gotFile != "shot.png" {
		t.Fatalf("expected image file shot.png, got %q", gotFile)
	}
}

func TestClientDecodesValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:      "validation failed: concept",
			Code:       "validation_failed",
			ErrorCode:  1015,
			Violations: []string{"concept"},
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateComment(context.Background(), "pt-1", CommentCreateRequest{Text: ""})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.ErrorCode != 1015 {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if len(apiErr.Violations) != 1 || apiErr.Violations[0] != "concept" {
		t.Fatalf("expected concept violation, got %v", apiErr.Violations)
	}
}

func TestClientDeleteNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).DeletePrototype(context.Background(), "pt-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
