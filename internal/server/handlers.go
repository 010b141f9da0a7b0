package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"storyboard/internal/assets"
	"storyboard/internal/catalog"
	"storyboard/internal/logging"
	"storyboard/web"
)

// decodeJSON parses a request body into dst. Callers validate required fields
// afterwards; absent fields stay nil so they are distinguishable from empty
// values.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snapshot, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.log().Error("snapshot failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load data")
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Name *string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	script, err := s.store.CreateScript(r.Context(), *req.Name)
	if err != nil {
		s.log().Error("create script failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create script")
		return
	}
	s.writeJSON(w, http.StatusOK, script)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSuffix(r, "/api/scripts/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Name *string `json:"name"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == nil {
			s.writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if err := s.store.RenameScript(r.Context(), id, *req.Name); err != nil {
			s.log().Error("rename script failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to update script")
			return
		}
		s.writeSuccess(w)
	case http.MethodDelete:
		filenames, err := s.store.DeleteScript(r.Context(), id)
		if err != nil {
			s.log().Error("delete script failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to delete script")
			return
		}
		for _, filename := range filenames {
			s.assets.Remove(filename)
		}
		s.writeSuccess(w)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSentences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		ScriptID *string `json:"script_id"`
		Text     *string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ScriptID == nil {
		s.writeError(w, http.StatusBadRequest, "script_id is required")
		return
	}
	if req.Text == nil {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	sentence, err := s.store.CreateSentence(r.Context(), *req.ScriptID, *req.Text)
	if err != nil {
		s.log().Error("create sentence failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create sentence")
		return
	}
	s.writeJSON(w, http.StatusOK, sentence)
}

func (s *Server) handleSentence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSuffix(r, "/api/sentences/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Text *string `json:"text"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Text == nil {
			s.writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		if err := s.store.UpdateSentence(r.Context(), id, *req.Text); err != nil {
			s.log().Error("update sentence failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to update sentence")
			return
		}
		s.writeSuccess(w)
	case http.MethodDelete:
		filenames, err := s.store.DeleteSentence(r.Context(), id)
		if err != nil {
			s.log().Error("delete sentence failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to delete sentence")
			return
		}
		for _, filename := range filenames {
			s.assets.Remove(filename)
		}
		s.writeSuccess(w)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSuffix(r, "/api/images/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.handleImageUpload(w, r, id)
	case http.MethodDelete:
		filename, err := s.store.DeleteImage(r.Context(), id)
		if errors.Is(err, catalog.ErrImageNotFound) {
			s.writeError(w, http.StatusNotFound, "Image not found")
			return
		}
		if err != nil {
			s.log().Error("delete image failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to delete image")
			return
		}
		s.assets.Remove(filename)
		s.writeSuccess(w)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

const maxUploadMemory = 32 << 20

// handleImageUpload stores every accepted file from the multipart "files"
// field under the given sentence. Files with disallowed extensions are
// skipped without reporting; this matches the upload contract, which has no
// per-file failure channel.
func (s *Server) handleImageUpload(w http.ResponseWriter, r *http.Request, sentenceID string) {
	exists, err := s.store.SentenceExists(r.Context(), sentenceID)
	if err != nil {
		s.log().Error("sentence lookup failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if !exists {
		s.writeError(w, http.StatusNotFound, "Sentence not found")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.writeError(w, http.StatusBadRequest, "No file part")
		return
	}

	for _, header := range files {
		if !assets.Allowed(header.Filename) {
			s.log().Debug("skipping upload with disallowed extension",
				logging.String("filename", header.Filename))
			continue
		}
		file, err := header.Open()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		filename, err := s.assets.Save(file, header.Filename)
		_ = file.Close()
		if err != nil {
			s.log().Error("asset save failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		if _, err := s.store.AddImage(r.Context(), sentenceID, filename); err != nil {
			s.assets.Remove(filename)
			s.log().Error("record image failed", logging.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
	}

	s.writeSuccess(w)
}

func (s *Server) handleSetMainImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := pathSuffix(r, "/api/images/set_main/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	err := s.store.SetMainImage(r.Context(), id)
	if errors.Is(err, catalog.ErrImageNotFound) {
		s.writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		s.log().Error("set main image failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to set main image")
		return
	}
	s.writeSuccess(w)
}

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name, ok := pathSuffix(r, "/uploads/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	path, err := s.assets.Path(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := web.FS.ReadFile("index.html")
	if err != nil {
		s.log().Error("embedded index missing", logging.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
