package httpserver

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	obsctx "github.com/fairyhunter13/ai-credit-assessor/internal/observability"
)

// Argon2Params defines parameters for Argon2id password hashing
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// DefaultArgon2Params are used when seeding reviewer accounts.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLen:     16,
	KeyLen:      32,
}

// HashPassword creates an Argon2id hash of the password.
// Format: argon2id$iterations$memory$parallelism$salt$hash (raw std base64).
func HashPassword(password string, params Argon2Params) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		params.Iterations,
		params.Memory,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword verifies a password against its Argon2id hash in constant time.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false
	}
	iters, err1 := parseUint32(parts[1])
	mem, err2 := parseUint32(parts[2])
	par64, err3 := parseUint32(parts[3])
	if err1 != nil || err2 != nil || err3 != nil || iters == 0 || par64 == 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expectedHash) == 0 {
		return false
	}
	// Clamp parallelism to uint8 range to avoid overflow
	var par uint8
	if par64 > math.MaxUint8 {
		par = math.MaxUint8
	} else {
		par = uint8(par64)
	}
	actualHash := argon2.IDKey([]byte(password), salt, iters, mem, par, uint32(len(expectedHash))) //nolint:gosec // decoded hash length is small
	return subtle.ConstantTimeCompare(actualHash, expectedHash) == 1
}

// reviewerKey is an unexported context key type for the authenticated reviewer.
type reviewerKey struct{}

// ReviewerFromContext returns the username set by ReviewerAuth.
func ReviewerFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(reviewerKey{}).(string)
	return v, ok && v != ""
}

// ReviewerAuth guards bank-side routes with HTTP Basic auth checked against bank_users.
func ReviewerAuth(users domain.BankUserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || strings.TrimSpace(username) == "" {
				unauthorized(w)
				return
			}
			u, err := users.GetByUsername(r.Context(), username)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				unauthorized(w)
				return
			case err != nil:
				writeError(w, r, err, nil)
				return
			}
			if !VerifyPassword(password, u.PasswordHash) {
				obsctx.LoggerFromContext(r.Context()).Warn("reviewer authentication failed", slog.String("username", username))
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), reviewerKey{}, u.Username)
			ctx = obsctx.With(ctx, slog.String("reviewer", u.Username))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="reviewers", charset="UTF-8"`)
	writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: apiError{Code: "UNAUTHENTICATED", Message: "reviewer credentials required"}})
}

// parseUint32 parses a decimal string into uint32; returns error on failure
func parseUint32(s string) (uint32, error) {
	x, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse")
	}
	return uint32(x), nil
}
