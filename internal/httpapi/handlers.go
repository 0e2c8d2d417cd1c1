package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/cloudstorage/pkg/resource"
)

// Resources is the resource workflow the handlers drive.
type Resources interface {
	Get(ctx context.Context, id string) (resource.Record, error)
	Save(ctx context.Context, in resource.SaveInput) (resource.Record, error)
	URL(ctx context.Context, id string) (string, error)
	URLFor(ctx context.Context, id, name string) (string, error)
}

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

type handler struct {
	resources     Resources
	log           *slog.Logger
	maxUploadSize int64
}

// saveRequest is the JSON body for create and edit. Absent fields are left
// unchanged on edit.
type saveRequest struct {
	Name        *string `json:"name"`
	URL         *string `json:"url"`
	PackageID   string  `json:"package_id"`
	ClearUpload bool    `json:"clear_upload"`
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"))
}

func (h *handler) save(w http.ResponseWriter, r *http.Request, id string) {
	in, cleanup, err := h.decodeSave(w, r)
	if err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()
	in.ID = id

	rec, err := h.resources.Save(r.Context(), in)
	if err != nil {
		failErr(w, r, h.log, err)
		return
	}

	if id == "" {
		created(w, rec)
		return
	}
	ok(w, rec)
}

// decodeSave reads either a multipart form (with an optional "upload" file)
// or a JSON body. The returned cleanup releases form files.
func (h *handler) decodeSave(w http.ResponseWriter, r *http.Request) (resource.SaveInput, func(), error) {
	noop := func() {}
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return resource.SaveInput{}, noop, errors.New("unsupported content type")
	}

	switch mediaType {
	case "application/json":
		var req saveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return resource.SaveInput{}, noop, errors.New("invalid JSON body")
		}
		return resource.SaveInput{
			Name:        req.Name,
			URL:         req.URL,
			PackageID:   req.PackageID,
			ClearUpload: req.ClearUpload,
		}, noop, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return resource.SaveInput{}, noop, fmt.Errorf("upload exceeds %d bytes", maxErr.Limit)
			}
			return resource.SaveInput{}, noop, errors.New("invalid multipart form")
		}
		cleanup := func() { _ = r.MultipartForm.RemoveAll() }

		in := resource.SaveInput{
			Name:      formValue(r.MultipartForm, "name"),
			URL:       formValue(r.MultipartForm, "url"),
			PackageID: r.FormValue("package_id"),
		}
		if v := r.FormValue("clear_upload"); v != "" {
			clearUpload, err := strconv.ParseBool(v)
			if err != nil {
				cleanup()
				return resource.SaveInput{}, noop, errors.New("invalid clear_upload value")
			}
			in.ClearUpload = clearUpload
		}

		file, header, err := r.FormFile("upload")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			cleanup()
			return resource.SaveInput{}, noop, errors.New("invalid upload")
		default:
			in.Upload = &resource.Upload{
				Body:        file,
				Filename:    header.Filename,
				ContentType: uploadContentType(header),
			}
			cleanup = func() {
				_ = file.Close()
				_ = r.MultipartForm.RemoveAll()
			}
		}
		return in, cleanup, nil

	default:
		return resource.SaveInput{}, noop, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// formValue distinguishes an absent field (nil) from an empty one.
func formValue(form *multipart.Form, key string) *string {
	vs, ok := form.Value[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	return &vs[0]
}

// uploadContentType keeps a client-declared type unless it is the generic
// binary type, which leaves detection to the storage backend.
func uploadContentType(h *multipart.FileHeader) string {
	ct := h.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.resources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, r, h.log, err)
		return
	}
	ok(w, rec)
}

// download redirects to the stored file of an uploaded resource. The
// filename segment, when present, overrides the recorded name.
func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		target string
		err    error
	)
	if name := chi.URLParam(r, "filename"); name != "" {
		target, err = h.resources.URLFor(r.Context(), id, name)
	} else {
		target, err = h.resources.URL(r.Context(), id)
	}
	if err != nil {
		failErr(w, r, h.log, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}
