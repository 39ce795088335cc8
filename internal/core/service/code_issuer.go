package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

const (
	defaultCodeTTL   = 24 * time.Hour
	codeDigestLength = 20
	codeKeyInfo      = "yamdb/confirmation-code/v1"
	codeClockSkew    = time.Minute
)

// CodeIssuer derives confirmation codes from user state instead of storing
// them. A code has the form "<base36 issue time>-<hex digest>" where the digest
// is an HMAC-SHA256, keyed by a subkey of the server secret, over:
//
//	id | username | email | role | last_login (unix, 0 if never) | issue time (unix)
//
// Changing any of those fields invalidates outstanding codes. Because token
// exchange updates last_login, every code is single-use. Verify additionally
// requires the issue time to match the user's CodeIssuedAt, so only the most
// recently issued code is accepted.
//
// The subkey is derived once from the process-wide secret and lives as long as
// the process; rotating the secret invalidates every outstanding code.
type CodeIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewCodeIssuer derives the signing subkey from secret. ttl <= 0 selects the
// default of 24h.
func NewCodeIssuer(secret string, ttl time.Duration) (*CodeIssuer, error) {
	if secret == "" {
		return nil, errors.New("code issuer: secret is required")
	}
	if ttl <= 0 {
		ttl = defaultCodeTTL
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(codeKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("code issuer: derive key: %w", err)
	}
	return &CodeIssuer{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns the code for u as of at. The caller is responsible for
// persisting at as u.CodeIssuedAt.
func (c *CodeIssuer) Issue(u *domain.User, at time.Time) string {
	ts := at.Unix()
	return strconv.FormatInt(ts, 36) + "-" + c.digest(u, ts)
}

// Verify reports whether code is the current, unexpired code of u. It never
// fails with an error.
func (c *CodeIssuer) Verify(u *domain.User, code string) bool {
	if u == nil || u.CodeIssuedAt.IsZero() {
		return false
	}
	rawTS, digest, ok := strings.Cut(strings.TrimSpace(code), "-")
	if !ok || digest == "" {
		return false
	}
	ts, err := strconv.ParseInt(rawTS, 36, 64)
	if err != nil || ts != u.CodeIssuedAt.Unix() {
		return false
	}

	age := c.now().Sub(time.Unix(ts, 0))
	if age > c.ttl || age < -codeClockSkew {
		return false
	}
	return hmac.Equal([]byte(digest), []byte(c.digest(u, ts)))
}

func (c *CodeIssuer) digest(u *domain.User, ts int64) string {
	var lastLogin int64
	if u.LastLogin != nil {
		lastLogin = u.LastLogin.Unix()
	}

	mac := hmac.New(sha256.New, c.key)
	fmt.Fprintf(mac, "%d\x00%s\x00%s\x00%s\x00%d\x00%d", u.ID, u.Username, u.Email, u.Role, lastLogin, ts)
	return hex.EncodeToString(mac.Sum(nil))[:codeDigestLength]
}
