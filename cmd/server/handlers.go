package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/varmalabs/voicegate/internal/service"
	"github.com/varmalabs/voicegate/internal/verify"
	"github.com/varmalabs/voicegate/pkg/logger"
	"github.com/varmalabs/voicegate/pkg/utils"
)

const maxUploadBytes = 32 << 20 // 32 MiB of audio is plenty

// Server encapsulates the HTTP server and its dependencies.
type Server struct {
	svc    *service.VoiceService
	config *ServerConfig
	log    *logger.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           int
	DBPath         string
	InboxDir       string
	AllowedOrigins []string
}

func NewServer(svc *service.VoiceService, config *ServerConfig) *Server {
	return &Server{
		svc:    svc,
		config: config,
		log:    logger.GetLogger(),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleLogin handles POST /login: an identity may log in only when a
// profile exists for it.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "User ID required")
		return
	}

	exists, err := s.svc.UserExists(req.UserID)
	if err != nil {
		s.log.Errorf("Login lookup failed for %q: %v", req.UserID, err)
		s.respondError(w, http.StatusInternalServerError, "Lookup failed")
		return
	}
	if !exists {
		s.respondError(w, http.StatusUnauthorized, "User ID not found")
		return
	}
	s.respondJSON(w, http.StatusOK, LoginResponse{Message: "Login successful"})
}

// handleUpload handles POST /upload: the audio lands in the watched inbox
// under the protocol filename and the orchestrator takes it from there.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	userID, file, err := s.multipartAudio(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()
	if userID == "" {
		userID = "unknown"
	}

	// the unique suffix keeps two same-second uploads from the same user
	// landing at one inbox path
	filename := fmt.Sprintf("voice_%s_%s_%s.wav", userID, time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	if err := s.saveToInbox(file, filename); err != nil {
		s.log.Errorf("Saving upload failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save audio")
		return
	}

	s.log.Infof("Audio saved for %s: %s", userID, filename)
	s.respondJSON(w, http.StatusOK, UploadResponse{
		Message:  "File uploaded successfully",
		Filename: filename,
	})
}

// handleEnroll handles POST /enroll synchronously: the uploaded sample is
// enrolled before the response goes out.
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	userID, file, err := s.multipartAudio(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "User ID required")
		return
	}

	// outside the inbox so the watcher does not also dispatch this sample
	tmpName := fmt.Sprintf("enroll_temp_%s.wav", userID)
	tmpPath := filepath.Join(os.TempDir(), tmpName)
	if err := s.saveFile(file, tmpPath); err != nil {
		s.log.Errorf("Saving enrollment audio failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save audio")
		return
	}
	defer utils.DeleteFile(tmpPath)

	p, err := s.svc.EnrollFile(r.Context(), tmpPath, userID)
	if err != nil {
		s.log.Errorf("Enrollment failed for %q: %v", userID, err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, EnrollResponse{
		Message:     "Enrollment successful",
		UserID:      p.UserID,
		SampleCount: p.SampleCount,
	})
}

// handleCheckStatus handles GET /check_status: stale results read as
// waiting, never as their stored verdict.
func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	result := s.svc.ResultSlot().Get()

	resp := StatusResponse{Status: string(result.Status)}
	if result.Status != verify.StatusWaiting {
		resp.Similarity = result.Similarity
		resp.Reason = result.Reason
		resp.Timestamp = result.Timestamp.Unix()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleListProfiles handles GET /api/profiles
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.svc.ListProfiles()
	if err != nil {
		s.log.Errorf("Failed to list profiles: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve profiles")
		return
	}

	dtos := make([]ProfileDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = ProfileDTO{
			UserID:      p.UserID,
			SampleCount: p.SampleCount,
			Status:      p.Status,
			UpdatedAt:   p.UpdatedAt,
		}
	}
	s.respondJSON(w, http.StatusOK, ListProfilesResponse{Profiles: dtos, Count: len(dtos)})
}

func (s *Server) multipartAudio(r *http.Request) (string, io.ReadCloser, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("invalid multipart form")
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		return "", nil, fmt.Errorf("no audio file provided")
	}
	return r.FormValue("user_id"), file, nil
}

func (s *Server) saveToInbox(src io.Reader, filename string) error {
	return s.saveFile(src, filepath.Join(s.config.InboxDir, filename))
}

// saveFile writes via a temp file and rename so the inbox watcher never
// sees a half-written submission at its final name.
func (s *Server) saveFile(src io.Reader, path string) error {
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmpPath := path + ".part"
	dst, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return utils.MoveFile(tmpPath, path)
}
