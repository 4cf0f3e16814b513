package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	authdomain "taskboard/backend/internal/domain/auth"
	taskdomain "taskboard/backend/internal/domain/task"
	authusecase "taskboard/backend/internal/usecase/auth"
	taskusecase "taskboard/backend/internal/usecase/task"
)

func (s *Server) registerRoutes() {
	s.router.Handle("/healthz", http.HandlerFunc(s.handleHealth))
	s.router.Handle("/metrics", s.metrics.Handler())

	limited := s.authLimiter.middleware
	s.router.Handle("/register", limited(http.HandlerFunc(s.handleRegister)))
	s.router.Handle("/login", limited(http.HandlerFunc(s.handleLogin)))
	s.router.Handle("/logout", http.HandlerFunc(s.handleLogout))
	s.router.Handle("/refresh", http.HandlerFunc(s.handleRefresh))

	authenticated := s.authMiddleware
	s.router.Handle("/tasks", authenticated(http.HandlerFunc(s.handleTasks)))
	s.router.Handle("/tasks/", authenticated(http.HandlerFunc(s.handleTaskSubtree)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Username string `json:"username"`
		Password string `json:"pwd"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	session, err := s.authService.Register(r.Context(), authusecase.RegisterInput{
		Username: payload.Username,
		Password: payload.Password,
		Email:    payload.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "username, password, and email are required")
		case errors.Is(err, authdomain.ErrInvalidEmail):
			writeError(w, http.StatusBadRequest, "invalid email format")
		case errors.Is(err, authdomain.ErrEmailExists), errors.Is(err, authdomain.ErrUsernameExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("register failed: %v", err)
			writeError(w, http.StatusInternalServerError, "server error while creating user")
		}
		return
	}

	s.setRefreshCookie(w, session.RefreshToken, s.refreshTTL)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     fmt.Sprintf("New user %s created and logged in!", session.User.Username),
		"accessToken": session.AccessToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"pwd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	session, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrMissingFields):
			writeError(w, http.StatusBadRequest, "email and password are required")
		case errors.Is(err, authdomain.ErrInvalidCredentials):
			// One message for unknown email and wrong password alike.
			writeError(w, http.StatusUnauthorized, "invalid email or password")
		default:
			log.Printf("login failed: %v", err)
			writeError(w, http.StatusInternalServerError, "server error during login")
		}
		return
	}

	s.setRefreshCookie(w, session.RefreshToken, s.refreshTTL)
	writeJSON(w, http.StatusOK, map[string]any{"accessToken": session.AccessToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	refreshToken, ok := refreshTokenFromCookie(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	err := s.authService.Logout(r.Context(), refreshToken)
	if err != nil && !errors.Is(err, authdomain.ErrSessionNotFound) {
		log.Printf("logout failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server error during logout")
		return
	}

	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	refreshToken, ok := refreshTokenFromCookie(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "refresh token required")
		return
	}

	accessToken, err := s.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrSessionNotFound),
			errors.Is(err, authdomain.ErrTokenExpired),
			errors.Is(err, authdomain.ErrTokenMalformed),
			errors.Is(err, authdomain.ErrTokenSignature),
			errors.Is(err, authdomain.ErrTokenMismatch):
			// Same message for every rejection; the cause is only logged.
			log.Printf("refresh rejected: %v", err)
			writeError(w, http.StatusForbidden, "invalid refresh token")
		default:
			log.Printf("refresh failed: %v", err)
			writeError(w, http.StatusInternalServerError, "server error during token refresh")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"accessToken": accessToken})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		input := taskusecase.ListInput{
			Page:      queryInt(query.Get("page"), 1),
			Limit:     queryInt(query.Get("limit"), 10),
			SortBy:    query.Get("sortBy"),
			SortOrder: query.Get("sortOrder"),
			Search:    query.Get("search"),
		}
		result, err := s.taskService.List(ctx, input)
		if err != nil {
			log.Printf("task list failed: %v", err)
			writeError(w, http.StatusInternalServerError, "server error while listing tasks")
			return
		}
		writeJSON(w, http.StatusOK, result)
	case http.MethodPost:
		var payload taskusecase.Input
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		item, err := s.taskService.Create(ctx, payload)
		if err != nil {
			s.writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleTaskSubtree(w http.ResponseWriter, r *http.Request) {
	remainder := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/")
	if remainder == "" {
		writeError(w, http.StatusBadRequest, "task id required")
		return
	}
	if remainder == "bulk-import" {
		s.handleBulkImport(w, r)
		return
	}

	segments := strings.Split(remainder, "/")
	taskID, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, taskdomain.ErrInvalidID.Error())
		return
	}

	if len(segments) > 1 {
		if segments[1] == "complete" {
			s.handleMarkComplete(w, r, taskID)
			return
		}
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		item, err := s.taskService.Get(ctx, taskID)
		if err != nil {
			s.writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut:
		var payload taskusecase.Input
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		item, err := s.taskService.Update(ctx, taskID, payload)
		if err != nil {
			s.writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := s.taskService.Delete(ctx, taskID); err != nil {
			s.writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleMarkComplete(w http.ResponseWriter, r *http.Request, taskID int64) {
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w, http.MethodPatch)
		return
	}
	item, err := s.taskService.MarkComplete(r.Context(), taskID)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Task marked as completed",
		"task":    item,
	})
}

func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload []taskusecase.Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Invalid format: Expected an array of tasks",
		})
		return
	}

	imported, err := s.taskService.BulkImport(r.Context(), payload)
	if err != nil {
		var importErr *taskusecase.ImportError
		if errors.As(err, &importErr) {
			body := map[string]any{
				"success": false,
				"error":   importErr.Reason,
			}
			if len(importErr.Details) > 0 {
				body["details"] = importErr.Details
			}
			if len(importErr.Duplicates) > 0 {
				body["duplicates"] = importErr.Duplicates
			}
			if len(importErr.Existing) > 0 {
				body["existingTitles"] = importErr.Existing
			}
			writeJSON(w, http.StatusBadRequest, body)
			return
		}
		log.Printf("bulk import failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server error during bulk import")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":       true,
		"importedCount": len(imported),
		"tasks":         imported,
		"message":       fmt.Sprintf("Successfully imported %d tasks", len(imported)),
	})
}

func (s *Server) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, taskdomain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, taskdomain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("task operation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authorization token required")
			return
		}

		if _, err := s.authService.VerifyAccess(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
