package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"sentiomcp/internal/server"
)

type credentialsKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, err := server.CredentialsFromRequest(r, s.defaultKey)
		if err != nil {
			slog.Warn("rejecting unauthenticated request", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), credentialsKey{}, creds)))
	})
}

// sessionServer is called once per SSE connection. A nil server makes the
// SDK reject the connection.
func (s *Server) sessionServer(r *http.Request) *mcp.Server {
	creds, ok := r.Context().Value(credentialsKey{}).(server.Credentials)
	if !ok {
		return nil
	}
	srv, err := s.build(r.Context(), creds)
	if err != nil {
		slog.Error("building mcp server", "subject", creds.Subject, "error", err)
		return nil
	}
	slog.Info("mcp session opened", "subject", creds.Subject)
	return srv
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		slog.Error("listing runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"runs": runs})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
