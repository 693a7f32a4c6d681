package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ortho-go/internal/ortho"
)

// multipartOverhead covers form fields and the thumbnail that travel with a chunk.
const multipartOverhead = 8 << 20

type okResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type fileResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Category     string    `json:"category"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
	HasThumbnail bool      `json:"hasThumbnail"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", "error", err)
	}
}

// handleUploadChunk accepts one chunk as multipart/form-data with fields
// name, position, totalChunks, an optional thumbnail data URL, and the
// chunk bytes in the file part "chunk".
func (s *Server) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxChunkSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeJSON(w, http.StatusBadRequest, okResponse{Error: "invalid multipart form: " + err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("chunk")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, okResponse{Error: "missing chunk"})
		return
	}
	defer part.Close()
	if header.Size > s.maxChunkSize {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, okResponse{Error: "chunk too large"})
		return
	}
	data, err := io.ReadAll(part)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, okResponse{Error: "reading chunk: " + err.Error()})
		return
	}

	chunk := &ortho.Chunk{
		OwnerID:     vars["ownerID"],
		Category:    ortho.Category(vars["category"]),
		FileName:    r.FormValue("name"),
		Data:        data,
		Position:    formInt(r, "position"),
		TotalChunks: formInt(r, "totalChunks"),
	}
	if thumb := r.FormValue("thumbnail"); thumb != "" {
		chunk.Thumbnail = []byte(thumb)
	}

	if err := s.uploads.ReceiveChunk(chunk); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ortho.ErrInvalidChunk) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, okResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// formInt returns the integer form value for key, or 0 when it is missing or
// malformed; the chunk validation then rejects it.
func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.FormValue(key))
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	category, err := ortho.ParseCategory(vars["category"])
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, okResponse{Error: err.Error()})
		return
	}

	files, err := s.uploads.ListFiles(vars["ownerID"], category)
	if err != nil {
		s.logger.Error("listing files", "owner", vars["ownerID"], "category", string(category), "error", err)
		s.writeJSON(w, http.StatusInternalServerError, okResponse{Error: "listing files failed"})
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileResponse{
			ID:           f.ID,
			OwnerID:      f.OwnerID,
			Category:     f.Category,
			Name:         f.Name,
			Size:         f.Size,
			Checksum:     f.Checksum,
			HasThumbnail: len(f.Thumbnail) > 0,
			URL:          "/files/" + ortho.StorageKey(f.OwnerID, ortho.Category(f.Category), f.Name),
			CreatedAt:    f.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	deleted, err := s.uploads.DeleteFile(id)
	if err != nil {
		s.logger.Error("deleting file", "id", id, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, okResponse{Error: "delete failed"})
		return
	}
	if !deleted {
		s.writeJSON(w, http.StatusNotFound, okResponse{Error: "file not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleClearStaging(w http.ResponseWriter, r *http.Request) {
	if err := s.uploads.ClearStaging(); err != nil {
		s.logger.Error("clearing staging", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, okResponse{Error: "clear failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// handleServeFile streams a stored photo, or the stored thumbnail of a video.
// Documents are not served.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name := vars["ownerID"], vars["name"]

	switch ortho.Category(vars["category"]) {
	case ortho.CategoryPhotos:
		s.servePhoto(w, owner, name)
	case ortho.CategoryVideos:
		s.serveThumbnail(w, owner, name)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) servePhoto(w http.ResponseWriter, owner, name string) {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	tw := &trackingWriter{ResponseWriter: w, contentType: contentType}
	err := s.uploads.OpenFile(owner, ortho.CategoryPhotos, name, tw)
	if err == nil {
		if !tw.wrote {
			tw.WriteHeader(http.StatusOK)
		}
		return
	}
	if tw.wrote {
		s.logger.Error("streaming photo", "owner", owner, "name", name, "error", err)
		return
	}
	switch {
	case errors.Is(err, ortho.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ortho.ErrLocked):
		http.Error(w, "records are locked", http.StatusLocked)
	default:
		s.logger.Error("opening photo", "owner", owner, "name", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) serveThumbnail(w http.ResponseWriter, owner, name string) {
	thumb, err := s.uploads.Thumbnail(owner, name)
	if err != nil {
		if errors.Is(err, ortho.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.logger.Error("loading thumbnail", "owner", owner, "name", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	contentType, image, err := decodeDataURL(string(thumb))
	if err != nil {
		s.logger.Warn("bad thumbnail", "owner", owner, "name", name, "error", err)
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(image)
}

// decodeDataURL decodes a base64 data URL such as data:image/png;base64,....
// A bare base64 string is taken as PNG.
func decodeDataURL(raw string) (string, []byte, error) {
	contentType := "image/png"
	payload := raw
	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return "", nil, errors.New("unsupported data url")
		}
		if mt := strings.TrimSuffix(meta, ";base64"); mt != "" {
			contentType = mt
		}
		payload = data
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return contentType, image, nil
}

// trackingWriter sets the content type and records whether the body has started.
type trackingWriter struct {
	http.ResponseWriter
	contentType string
	wrote       bool
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	if !t.wrote {
		t.WriteHeader(http.StatusOK)
	}
	return t.ResponseWriter.Write(p)
}

func (t *trackingWriter) WriteHeader(status int) {
	t.wrote = true
	t.ResponseWriter.Header().Set("Content-Type", t.contentType)
	t.ResponseWriter.WriteHeader(status)
}
