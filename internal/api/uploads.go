package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rutasonora/internal/auth"
	"rutasonora/internal/models"
	"rutasonora/internal/monuments"
	"rutasonora/internal/uploads"
)

// multipartSlack covers form fields and boundaries around the file.
const multipartSlack = 1 << 20

func (s *Server) uploadSession(w http.ResponseWriter, r *http.Request) (*uploads.Session, bool) {
	owner, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, auth.MsgNoSession)
		return nil, false
	}
	return s.deps.Uploads.Session(owner), true
}

func (s *Server) listUploads(w http.ResponseWriter, r *http.Request) {
	session, ok := s.uploadSession(w, r)
	if !ok {
		return
	}
	if err := session.Load(r.Context()); err != nil {
		writeError(w, err, msgListFail)
		return
	}
	page := monuments.Paginate(session.List(), monuments.PageSize, pageIndex(r))
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := s.uploadSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxUploadBytes+multipartSlack)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeMessage(w, http.StatusBadRequest, "Falta el campo 'file'.")
		return
	}
	defer file.Close()

	// Sniff the first bytes when the client sent no usable type.
	body := bufio.NewReader(file)
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		head, _ := body.Peek(512)
		contentType = http.DetectContentType(head)
	}

	rec, err := session.Upload(r.Context(), uploads.File{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        body,
	}, r.FormValue("description"), func(p uploads.Progress) {
		log.Printf("[uploads] %s: %.0f%%", header.Filename, p.Percent())
	})
	if err != nil {
		writeError(w, err, msgUploadFail)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) deleteUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := s.uploadSession(w, r)
	if !ok {
		return
	}
	rec, err := session.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, msgDeleteFail)
		return
	}
	if err := session.Delete(r.Context(), rec); err != nil {
		writeError(w, err, msgDeleteFail)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// streamUploads sends the full list as a server-sent event after every
// change until the client leaves or the session closes.
func (s *Server) streamUploads(w http.ResponseWriter, r *http.Request) {
	session, ok := s.uploadSession(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}

	updates, stop := session.Watch()
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case list, open := <-updates:
			if !open {
				return
			}
			if err := writeEvent(w, list); err != nil {
				log.Printf("[api] stream uploads: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, list []models.Upload) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: uploads\ndata: %s\n\n", strings.TrimSpace(string(data)))
	return err
}
