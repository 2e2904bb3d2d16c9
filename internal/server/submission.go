package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"protospace/internal/api"
	"protospace/internal/core"
)

const (
	imageFormField = "image"
	// multipartOverhead leaves room for text fields and part headers on top
	// of the image size limit.
	multipartOverhead int64 = 1 << 20
)

var errUnsupportedContentType = errors.New("unsupported content type")

// prototypeFieldsFromRequest builds a partial submission from a multipart,
// urlencoded or JSON request body. A text key present in the form is present
// even when empty. A file part is present only when it carries a filename.
func (s *Server) prototypeFieldsFromRequest(w http.ResponseWriter, r *http.Request) (core.PrototypeFields, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadMaxBytes+multipartOverhead)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
			return core.PrototypeFields{}, classifyFormError(err)
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()
		fields := core.FieldsFromValues(r.MultipartForm.Value)
		upload, present, err := s.readUpload(r.MultipartForm.File[imageFormField])
		if err != nil {
			return core.PrototypeFields{}, err
		}
		if present {
			fields.Image = core.Some(upload)
		}
		return fields, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return core.PrototypeFields{}, classifyFormError(err)
		}
		return core.FieldsFromValues(r.PostForm), nil
	case "application/json":
		var req api.PrototypePatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return core.PrototypeFields{}, classifyDecodeJSONError(err)
		}
		return fieldsFromPatch(req), nil
	default:
		return core.PrototypeFields{}, makeAPIError(http.StatusUnsupportedMediaType, "invalid_argument", ErrCodeInvalidMultipart, errUnsupportedContentType)
	}
}

func (s *Server) readUpload(files []*multipart.FileHeader) (core.Upload, bool, error) {
	if len(files) == 0 || strings.TrimSpace(files[0].Filename) == "" {
		return core.Upload{}, false, nil
	}
	fh := files[0]
	if fh.Size > s.uploadMaxBytes {
		return core.Upload{}, false, makeAPIError(http.StatusRequestEntityTooLarge, "request_too_large", ErrCodeRequestTooLarge, fmt.Errorf("image exceeds %d bytes", s.uploadMaxBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return core.Upload{}, false, badRequestCode(fmt.Errorf("open image part: %w", err), ErrCodeInvalidMultipart)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.uploadMaxBytes+1))
	if err != nil {
		return core.Upload{}, false, badRequestCode(fmt.Errorf("read image part: %w", err), ErrCodeInvalidMultipart)
	}
	if int64(len(data)) > s.uploadMaxBytes {
		return core.Upload{}, false, makeAPIError(http.StatusRequestEntityTooLarge, "request_too_large", ErrCodeRequestTooLarge, fmt.Errorf("image exceeds %d bytes", s.uploadMaxBytes))
	}

	mediaType := ""
	if raw := fh.Header.Get("Content-Type"); raw != "" {
		if parsed, _, err := mime.ParseMediaType(raw); err == nil && parsed != "application/octet-stream" {
			mediaType = parsed
		}
	}
	return core.Upload{Filename: fh.Filename, MediaType: mediaType, Data: data}, true, nil
}

func fieldsFromPatch(req api.PrototypePatchRequest) core.PrototypeFields {
	var fields core.PrototypeFields
	if req.Title != nil {
		fields.Title = core.Some(*req.Title)
	}
	if req.CatchCopy != nil {
		fields.CatchCopy = core.Some(*req.CatchCopy)
	}
	if req.Concept != nil {
		fields.Concept = core.Some(*req.Concept)
	}
	return fields
}

func classifyFormError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return makeAPIError(http.StatusRequestEntityTooLarge, "request_too_large", ErrCodeRequestTooLarge, fmt.Errorf("request body too large"))
	}
	return badRequestCode(fmt.Errorf("invalid form: %w", err), ErrCodeInvalidMultipart)
}
