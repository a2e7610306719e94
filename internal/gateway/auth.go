package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// User is a fixed demo credential; there is no user store behind the gateway.
type User struct {
	Username string
	Password string
	Role     string
}

var demoUsers = []User{
	{Username: "admin", Password: "123456", Role: "admin"},
	{Username: "seller", Password: "password123", Role: "seller"},
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler authenticates against the fixed user list and returns a JWT.
func LoginHandler(tokens *TokenIssuer, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var user *User
		for i := range demoUsers {
			if demoUsers[i].Username == req.Username && demoUsers[i].Password == req.Password {
				user = &demoUsers[i]
				break
			}
		}
		if user == nil {
			logger.Printf("failed login for %q", req.Username)
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		token, err := tokens.IssueUser(user.Username, user.Role)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens *TokenIssuer, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			if _, err := tokens.Verify(raw); err != nil {
				logger.Printf("rejected token: %v", err)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
