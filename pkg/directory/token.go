package directory

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields bearer tokens for the directory API. Acquisition
// failures must be *Error values with CodeCredentialUnavailable so the engine
// can retry silently instead of prompting.
type TokenSource interface {
	Token() (string, error)
}

// Identity describes the signed-in account, extracted from token claims
// without signature verification. Display only; never used for authorization
// decisions.
type Identity struct {
	UPN      string
	TenantID string
	Expires  time.Time
}

// EnvTokenSource reads the token from an environment variable on every call.
type EnvTokenSource struct {
	Var string
}

func (s EnvTokenSource) Token() (string, error) {
	tok := strings.TrimSpace(os.Getenv(s.Var))
	if tok == "" {
		return "", NewError(CodeCredentialUnavailable, "environment variable %s is empty", s.Var)
	}
	return tok, nil
}

// FileTokenSource reads the token from a file, caching it until the file
// changes size or mtime. The file is whatever the external login CLI wrote.
type FileTokenSource struct {
	Path string

	mu      sync.Mutex
	cached  string
	modTime time.Time
	size    int64
}

func (s *FileTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.Path)
	if err != nil {
		return "", NewError(CodeCredentialUnavailable, "token file %s: %v", s.Path, err)
	}
	if s.cached != "" && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", NewError(CodeCredentialUnavailable, "token file %s: %v", s.Path, err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", NewError(CodeCredentialUnavailable, "token file %s is empty", s.Path)
	}

	s.cached = tok
	s.modTime = info.ModTime()
	s.size = info.Size()
	return tok, nil
}

// StaticTokenSource returns a fixed token. Test helper.
type StaticTokenSource string

func (s StaticTokenSource) Token() (string, error) {
	if s == "" {
		return "", NewError(CodeCredentialUnavailable, "no token configured")
	}
	return string(s), nil
}

// PeekIdentity decodes token claims without verifying the signature. The
// result feeds the AUTHENTICATING banner; an undecodable token is not an
// error worth surfacing, so callers should treat (Identity{}, err) as
// "unknown account".
func PeekIdentity(token string) (Identity, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("parse token claims: %w", err)
	}

	var id Identity
	if v, ok := claims["upn"].(string); ok {
		id.UPN = v
	} else if v, ok := claims["preferred_username"].(string); ok {
		id.UPN = v
	}
	if v, ok := claims["tid"].(string); ok {
		id.TenantID = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.Expires = exp.Time
	}
	return id, nil
}
