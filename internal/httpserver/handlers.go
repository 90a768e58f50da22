package httpserver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/skip2/go-qrcode"

	"pagebin/internal/entry"
	"pagebin/internal/id"
	"pagebin/internal/storage"
)

const (
	msgEmptyContent = "Content cannot be empty"
	msgURLTaken     = "URL already exists. Please choose a different one."
	msgNewURLTaken  = "New URL already exists. Please choose a different one."
	msgInvalidURL   = "URL contains no usable characters"
	msgBadEditCode  = "Invalid edit code"
	msgSaveFailed   = "Failed to save entry"
	msgUpdateFailed = "Failed to update entry"
	msgInternal     = "Internal server error"
	msgNotFound     = "Entry not found"
)

type indexPageData struct {
	MaxBytes int
}

type editPageData struct {
	Entry        storage.PublicEntry
	RevealedCode string
	Canonical    string
}

type errorPageData struct {
	Message string
}

type titled interface {
	PageTitle() string
}

func (d indexPageData) PageTitle() string {
	return "New Page · Pagebin"
}

func (d editPageData) PageTitle() string {
	if d.Entry.ID != "" {
		return fmt.Sprintf("Edit %s · Pagebin", d.Entry.ID)
	}
	return "Edit · Pagebin"
}

func (d errorPageData) PageTitle() string {
	if d.Message == "" {
		return "Pagebin"
	}
	return d.Message + " · Pagebin"
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index", indexPageData{MaxBytes: s.maxBytes})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	maxBody := int64(s.maxBytes) + 4096
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseForm(); err != nil {
		s.redirectError(w, r, s.formErrorMessage(err))
		return
	}

	content := r.FormValue("content")
	if len(content) > s.maxBytes {
		s.redirectError(w, r, fmt.Sprintf("Content exceeds %d byte limit", s.maxBytes))
		return
	}

	created, err := s.svc.Create(r.Context(), entry.CreateRequest{
		Content:   content,
		CustomURL: r.FormValue("customUrl"),
		EditCode:  r.FormValue("editCode"),
	})
	if err != nil {
		s.redirectError(w, r, createMessage(err))
		return
	}

	if created.RevealEditCode {
		s.setRevealCookie(w, r, s.reveals.Put(created.ID, created.EditCode))
	}
	http.Redirect(w, r, entryPath(created.ID)+"/edit", http.StatusSeeOther)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	content, err := s.svc.View(r.Context(), entryIDParam(r))
	if err != nil {
		s.entryError(w, r, err)
		return
	}

	etag := etagFor(content)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)
	_, _ = io.WriteString(w, content)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	pub, err := s.svc.FetchForEdit(r.Context(), entryIDParam(r))
	if err != nil {
		s.entryError(w, r, err)
		return
	}

	data := editPageData{Entry: pub, Canonical: s.canonicalURL(r, pub.ID)}
	if c, err := r.Cookie(revealCookieName); err == nil {
		if code, ok := s.reveals.Take(c.Value, pub.ID); ok {
			data.RevealedCode = code
			s.clearRevealCookie(w)
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, http.StatusOK, "edit", data)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	maxBody := int64(s.maxBytes) + 4096
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseForm(); err != nil {
		s.redirectError(w, r, s.formErrorMessage(err))
		return
	}

	content := r.FormValue("content")
	if len(content) > s.maxBytes {
		s.redirectError(w, r, fmt.Sprintf("Content exceeds %d byte limit", s.maxBytes))
		return
	}

	finalID, err := s.svc.Update(r.Context(), entry.UpdateRequest{
		ID:          entryIDParam(r),
		EditCode:    r.FormValue("editCode"),
		Content:     content,
		NewEditCode: r.FormValue("newEditCode"),
		NewURL:      r.FormValue("newUrl"),
	})
	if err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			s.notFound(w, r)
			return
		}
		s.redirectError(w, r, updateMessage(err))
		return
	}
	http.Redirect(w, r, entryPath(finalID)+"/edit", http.StatusSeeOther)
}

func (s *Server) handleAPIEntry(w http.ResponseWriter, r *http.Request) {
	entryID := entryIDParam(r)
	if !id.Valid(entryID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgNotFound})
		return
	}
	pub, err := s.svc.FetchForEdit(r.Context(), entryID)
	if err != nil {
		if errors.Is(err, entry.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgNotFound})
			return
		}
		s.logger.Error("api entry", "id", entryID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, pub)
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	pub, err := s.svc.FetchForEdit(r.Context(), entryIDParam(r))
	if err != nil {
		s.entryError(w, r, err)
		return
	}

	png, err := qrcode.Encode(s.canonicalURL(r, pub.ID), qrcode.Medium, 256)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) handleErrorPage(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("message")
	if msg == "" {
		msg = "Something went wrong"
	}
	s.render(w, r, http.StatusOK, "error", errorPageData{Message: msg})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	title := "Pagebin"
	if t, ok := data.(titled); ok {
		if pt := t.PageTitle(); pt != "" {
			title = pt
		}
	}
	body := &bytes.Buffer{}
	bodyTemplate := name + "-body"
	if err := s.templates.ExecuteTemplate(body, bodyTemplate, data); err != nil {
		s.handleTemplateError(w, status, bodyTemplate, err)
		return
	}
	layoutBuf := &bytes.Buffer{}
	layoutData := struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		Body:  template.HTML(body.String()),
	}
	if err := s.templates.ExecuteTemplate(layoutBuf, "layout", layoutData); err != nil {
		s.handleTemplateError(w, status, "layout", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = layoutBuf.WriteTo(w)
}

func (s *Server) handleTemplateError(w http.ResponseWriter, status int, name string, err error) {
	s.logger.Error("render template", "error", err, "template", name)
	http.Error(w, "Template error", status)
}

// entryError answers a failed View or FetchForEdit.
func (s *Server) entryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, entry.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	s.serverError(w, r, err)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("internal error", "error", err, "path", r.URL.Path)
	s.render(w, r, http.StatusInternalServerError, "error", errorPageData{Message: msgInternal})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "error", errorPageData{Message: msgNotFound})
}

func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/error?message="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (s *Server) formErrorMessage(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Sprintf("Content exceeds %d byte limit", s.maxBytes)
	}
	return "Unable to parse form"
}

func createMessage(err error) string {
	switch {
	case errors.Is(err, entry.ErrEmptyContent):
		return msgEmptyContent
	case errors.Is(err, entry.ErrURLTaken):
		return msgURLTaken
	case errors.Is(err, entry.ErrInvalidURL):
		return msgInvalidURL
	case errors.Is(err, entry.ErrSaveFailed):
		return msgSaveFailed
	default:
		return msgInternal
	}
}

func updateMessage(err error) string {
	switch {
	case errors.Is(err, entry.ErrUnauthorized):
		return msgBadEditCode
	case errors.Is(err, entry.ErrEmptyContent):
		return msgEmptyContent
	case errors.Is(err, entry.ErrURLTaken):
		return msgNewURLTaken
	case errors.Is(err, entry.ErrInvalidURL):
		return msgInvalidURL
	case errors.Is(err, entry.ErrSaveFailed):
		return msgUpdateFailed
	default:
		return msgInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func etagFor(content string) string {
	sum := sha256.Sum256([]byte(content))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
