package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/rag"
	"github.com/hyperjump/ragstore/internal/storage"
	"github.com/hyperjump/ragstore/internal/vector"
	"go.uber.org/zap"
)

type addTextResponse struct {
	Chunks int `json:"chunks"`
	Size   int `json:"size"`
}

type contextResponse struct {
	Context string   `json:"context"`
	Sources []string `json:"sources"`
}

type storePathRequest struct {
	Path string `json:"path,omitempty"`
}

func (s *Server) handleAddText(w http.ResponseWriter, r *http.Request) {
	var input models.TextInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("add text request", zap.String("source", input.Source), zap.Int("length", len(input.Text)))
	chunks, err := s.ingester.IngestText(r.Context(), input.Text, input.Source)
	if err != nil {
		s.logger.Error("add text failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.mu.Lock()
	size := s.orch.StoreSize()
	s.mu.Unlock()
	s.respondJSON(w, http.StatusCreated, addTextResponse{Chunks: chunks, Size: size})
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*models.SearchQuery, bool) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := query.Validate(s.config.Search.DefaultTopK, s.config.Search.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &query, true
}

func (s *Server) search(r *http.Request, query *models.SearchQuery) (*models.SearchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orch.Search(r.Context(), query.Query, query.TopK)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	response, err := s.search(r, query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	response, err := s.search(r, query)
	if err != nil {
		s.logger.Error("context search failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	sources := make([]string, 0, len(response.Results))
	seen := make(map[string]bool)
	for _, res := range response.Results {
		base := vector.BaseSource(res.Source)
		if !seen[base] {
			seen[base] = true
			sources = append(sources, base)
		}
	}
	s.respondJSON(w, http.StatusOK, contextResponse{
		Context: rag.BuildContext(response.Results),
		Sources: sources,
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sources := s.orch.ContextSources()
	s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sources": sources})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("clear store request")
	if err := s.ingester.Clear(r.Context()); err != nil {
		s.logger.Error("clear failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// storePath reads an optional {path} body, defaulting to the configured snapshot.
func (s *Server) storePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req storePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if req.Path == "" {
		req.Path = s.config.Storage.SnapshotPath
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return "", false
	}
	return req.Path, true
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	path, ok := s.storePath(w, r)
	if !ok {
		return
	}
	s.logger.Debug("save store request", zap.String("path", path))
	if err := s.ingester.Save(path); err != nil {
		s.logger.Error("save failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": path, "status": "saved"})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	path, ok := s.storePath(w, r)
	if !ok {
		return
	}
	s.logger.Debug("load store request", zap.String("path", path))
	if err := s.ingester.Load(r.Context(), path); err != nil {
		s.logger.Error("load failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.mu.Lock()
	size := s.orch.StoreSize()
	s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"path": path, "status": "loaded", "size": size})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ingester.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	diskBytes, err := storage.DiskUsageBytes(storage.FootprintPaths(
		s.config.Storage.SnapshotPath,
		s.config.Storage.CatalogPath,
	)...)
	if err == nil {
		st.DiskUsageBytes = &diskBytes
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rag.ErrNoEmbedder), errors.Is(err, rag.ErrNoStore),
		errors.Is(err, embedding.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, rag.ErrEmptyText), errors.Is(err, embedding.ErrEmptyText),
		errors.Is(err, vector.ErrDimensionMismatch), errors.Is(err, embedding.ErrDimensionMismatch),
		errors.Is(err, vector.ErrEmptyEmbedding), errors.Is(err, vector.ErrInvalidEmbedding),
		errors.Is(err, vector.ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
