package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/nicolagi/quire/post"
	"github.com/nicolagi/quire/postdb"
	"github.com/nicolagi/quire/storage"
	log "github.com/sirupsen/logrus"
)

const (
	codeInvalidID  = "INVALID_ID"
	codeNotFound   = "POST_NOT_FOUND"
	codeReadError  = "FILE_READ_ERROR"
	codeUnexpected = "UNEXPECTED_ERROR"
)

type viewFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func writeViewFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, viewFailure{Error: message, Code: code})
}

func writeUnexpected(w http.ResponseWriter) {
	writeViewFailure(w, http.StatusInternalServerError, codeUnexpected, "An unexpected error occurred. Please try again later.")
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreate(w, r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	posts, err := h.repo.Create(req)
	var verr *post.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Message)
	case err != nil:
		log.WithField("err", err).Error("Could not create post")
		writeMessage(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, posts)
	}
}

// decodeCreate accepts JSON bodies and, like HTML forms submit them,
// URL-encoded ones.
func decodeCreate(w http.ResponseWriter, r *http.Request) (post.CreateRequest, error) {
	var req post.CreateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return req, errors.New("Invalid form body")
		}
		req.Title = r.PostForm.Get("title")
		req.Content = r.PostForm.Get("content")
		if v, ok := r.PostForm["owner"]; ok && len(v) > 0 {
			req.Owner = &v[0]
		}
		if v, ok := r.PostForm["imageUrl"]; ok && len(v) > 0 {
			req.ImageURL = &v[0]
		}
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.New("Invalid JSON body")
	}
	return req, nil
}

type editResponse struct {
	Message  string    `json:"message"`
	Resource post.Post `json:"resource"`
}

func (h *handler) edit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeMessage(w, http.StatusBadRequest, "No Post ID provided")
		return
	}
	var req post.EditRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	p, err := h.repo.Edit(id, req)
	var verr *post.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, postdb.ErrPostNotFound):
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("Post with ID (%s) not found.", id))
	case errors.Is(err, postdb.ErrStoreWrite):
		log.WithFields(log.Fields{"id": id, "err": err}).Error("Could not save edited post")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Post was updated but failed to save. Please try again.",
			"error":   err.Error(),
		})
	case err != nil:
		log.WithFields(log.Fields{"id": id, "err": err}).Error("Could not edit post")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "An unexpected error occurred while updating the post.",
			"error":   err.Error(),
		})
	default:
		writeJSON(w, http.StatusOK, editResponse{Message: "Resource updated successfully!", Resource: p})
	}
}

type viewResponse struct {
	Success bool      `json:"success"`
	Post    post.Post `json:"post"`
}

func (h *handler) view(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.repo.View(id)
	switch {
	case errors.Is(err, postdb.ErrInvalidID):
		writeViewFailure(w, http.StatusBadRequest, codeInvalidID, "Invalid post ID. ID must be a positive integer.")
	case errors.Is(err, postdb.ErrPostNotFound):
		writeViewFailure(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("Post with ID %s not found.", id))
	case errors.Is(err, postdb.ErrStoreRead):
		log.WithFields(log.Fields{"id": id, "err": err}).Error("Could not read posts")
		writeViewFailure(w, http.StatusInternalServerError, codeReadError, "Unable to read posts data. Please try again later.")
	case err != nil:
		log.WithFields(log.Fields{"id": id, "err": err}).Error("Could not view post")
		writeUnexpected(w)
	default:
		writeJSON(w, http.StatusOK, viewResponse{Success: true, Post: p})
	}
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	posts, err := h.repo.List()
	if err != nil {
		log.WithField("err", err).Error("Could not list posts")
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *handler) rawPosts(w http.ResponseWriter, _ *http.Request) {
	writeRaw(w, h.repo.Raw, "No blog posts found.")
}

func (h *handler) rawTemplate(w http.ResponseWriter, _ *http.Request) {
	if h.cfg.Templates == nil || h.cfg.TemplateKey == "" {
		writeMessage(w, http.StatusNotFound, "No template configured.")
		return
	}
	writeRaw(w, func() ([]byte, error) {
		return h.cfg.Templates.Get(h.cfg.TemplateKey)
	}, "No template found.")
}

func writeRaw(w http.ResponseWriter, get func() ([]byte, error), missing string) {
	b, err := get()
	if errors.Is(err, storage.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, missing)
		return
	}
	if err != nil {
		log.WithField("err", err).Error("Could not read document")
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(b); err != nil {
		log.WithField("err", err).Debug("Could not write response")
	}
}
