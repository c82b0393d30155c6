package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type ImageHandler struct {
	images    services.ImageStore
	maxSizeMB int64
	log       *zap.Logger
}

func NewImageHandler(images services.ImageStore, maxSizeMB int64, log *zap.Logger) *ImageHandler {
	return &ImageHandler{
		images:    images,
		maxSizeMB: maxSizeMB,
		log:       log,
	}
}

func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	// Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSizeMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxSizeMB * 1024 * 1024); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("File too large or invalid form data"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("No image file provided"))
		return
	}
	defer file.Close()

	// Trust the bytes, not the client-supplied header.
	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Unable to read image"))
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	if !services.IsValidImageType(contentType) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image type. Allowed: JPEG, PNG, GIF, WebP"))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to upload image"))
		return
	}

	response, err := h.images.Upload(r.Context(), user.ID, header.Filename, contentType, file)
	if err != nil {
		writeError(w, h.log, "UploadImage", err)
		return
	}
	h.log.Info("image uploaded", zap.String("user_id", user.ID), zap.String("image_id", response.ID))
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(response))
}

func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), user.ID, chi.URLParam(r, "imageId")); err != nil {
		writeError(w, h.log, "DeleteImage", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("Image deleted successfully"))
}
