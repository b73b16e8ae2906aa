package web

import (
	"errors"
	"mime"
	"net/http"
	"path"

	"github.com/nicolagi/quire/images"
	"github.com/nicolagi/quire/storage"
	log "github.com/sirupsen/logrus"
)

// uploadField is the multipart form field carrying the image.
const uploadField = "image"

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.cfg.MaxUploadBytes {
		h.metrics.upload("too_large")
		writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.metrics.upload("too_large")
		writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	case err != nil:
		log.WithField("err", err).Debug("Upload without a file")
		h.metrics.upload("missing")
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	url, err := h.images.Save(header.Filename, file)
	if errors.As(err, &tooLarge) {
		h.metrics.upload("too_large")
		writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	if err != nil {
		log.WithFields(log.Fields{
			"filename": header.Filename,
			"err":      err,
		}).Error("Could not save image")
		h.metrics.upload("error")
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.upload("ok")
	writeJSON(w, http.StatusCreated, map[string]string{"imageUrl": url})
}

func (h *handler) image(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	b, err := h.images.Open(name)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, images.ErrInvalidName) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.WithFields(log.Fields{
			"name": name,
			"err":  err,
		}).Error("Could not read image")
		writeMessage(w, http.StatusInternalServerError, "Could not read image")
		return
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(b)
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(b); err != nil {
		log.WithField("err", err).Debug("Could not write response")
	}
}
