package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"securenotes/pkg/logger"
	"securenotes/pkg/metrics"
)

// ReplicationTokenHeader authenticates a replication push: its value is
// the hex HMAC-SHA256 of the raw request body under the shared secret.
const ReplicationTokenHeader = "X-Replication-Token"

// ComputeReplicationToken signs a request body for the push endpoint.
func ComputeReplicationToken(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyReplicationToken checks a presented token against the raw body in
// constant time.
func VerifyReplicationToken(secret string, body []byte, token string) bool {
	raw, err := hex.DecodeString(token)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), raw)
}

// ReplicationAuth verifies the replication token against the raw bytes
// actually received, before any JSON parsing, and rejects the request when
// the token is missing or does not match. The body is handed to the next
// handler untouched.
func ReplicationAuth(secret string, m *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "Failed to read request body", http.StatusBadRequest)
				return
			}
			r.Body.Close()

			token := r.Header.Get(ReplicationTokenHeader)
			if token == "" || !VerifyReplicationToken(secret, body, token) {
				m.IncReplicationAuthFailure()
				logger.Sugar.Warnf("Rejected replication push: missing or invalid token from %s", r.RemoteAddr)
				http.Error(w, "Unauthorized: invalid replication token", http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
