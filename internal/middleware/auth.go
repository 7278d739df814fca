package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xueqianLu/dscgateway/internal/response"
)

const (
	apiKeyHeader    = "X-API-Key"
	signatureHeader = "X-Signature"
	timestampHeader = "X-Timestamp"
	maxTimeSkew     = 60 // seconds
)

// MaxBodyBytes caps every request body read by the gateway.
const MaxBodyBytes = 1 << 20

// AuthMiddleware provides HMAC-based authentication.
type AuthMiddleware struct {
	apiKey    string
	apiSecret string
	now       func() time.Time
}

// NewAuthMiddleware creates a new AuthMiddleware. An empty apiKey disables
// authentication.
func NewAuthMiddleware(apiKey, apiSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		now:       time.Now,
	}
}

// Enabled reports whether requests are checked.
func (m *AuthMiddleware) Enabled() bool {
	return m.apiKey != ""
}

// Sign computes the signature header value for timestamp and body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Wrap wraps an http.Handler with authentication.
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unauthorized := func(msg string) {
			response.WriteJSON(w, http.StatusUnauthorized, response.Fail(msg))
		}

		// 1. Check API Key
		if !hmac.Equal([]byte(r.Header.Get(apiKeyHeader)), []byte(m.apiKey)) {
			unauthorized("Invalid API Key")
			return
		}

		// 2. Check Timestamp
		timestampStr := r.Header.Get(timestampHeader)
		if timestampStr == "" {
			unauthorized("Missing timestamp header")
			return
		}
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			unauthorized("Invalid timestamp format")
			return
		}
		skew := m.now().Unix() - timestamp
		if skew > maxTimeSkew || skew < -maxTimeSkew {
			unauthorized("Timestamp expired")
			return
		}

		// 3. Check Signature
		requestSignature := r.Header.Get(signatureHeader)
		if requestSignature == "" {
			unauthorized("Missing signature header")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.WriteJSON(w, http.StatusRequestEntityTooLarge, response.Fail("Request body too large"))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.Fail("Failed to read request body"))
			return
		}
		// Restore the body so the next handler can read it
		r.Body = io.NopCloser(bytes.NewReader(body))

		expectedSignature := Sign(m.apiSecret, timestampStr, body)
		if !hmac.Equal([]byte(requestSignature), []byte(expectedSignature)) {
			unauthorized("Invalid signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}
