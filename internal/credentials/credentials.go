// Package credentials resolves object-storage access keys by reference name,
// so pipeline configuration never carries secrets inline.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when a reference cannot be resolved.
var ErrNotFound = errors.New("credentials not found")

// Credentials is an access key pair, optionally with a session token for
// temporary credentials.
type Credentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// Valid reports whether both halves of the key pair are present.
func (c Credentials) Valid() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Provider resolves a credentials reference.
type Provider interface {
	Credentials(ctx context.Context, ref string) (Credentials, error)
}

// Static serves credentials from a fixed map. Useful for tests and local runs.
type Static map[string]Credentials

func (s Static) Credentials(ctx context.Context, ref string) (Credentials, error) {
	c, ok := s[ref]
	if !ok || !c.Valid() {
		return Credentials{}, fmt.Errorf("%w: ref=%q", ErrNotFound, ref)
	}
	return c, nil
}

// Env reads credentials from environment variables.
//
// For ref "aws_credentials" it looks up AWS_CREDENTIALS_ACCESS_KEY_ID and
// AWS_CREDENTIALS_SECRET_ACCESS_KEY (and _SESSION_TOKEN) first, then falls back
// to the standard AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
type Env struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

func (e Env) Credentials(ctx context.Context, ref string) (Credentials, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	read := func(prefix string) Credentials {
		var c Credentials
		c.AccessKey, _ = lookup(prefix + "ACCESS_KEY_ID")
		c.SecretKey, _ = lookup(prefix + "SECRET_ACCESS_KEY")
		c.SessionToken, _ = lookup(prefix + "SESSION_TOKEN")
		return c
	}

	if p := envPrefix(ref); p != "" {
		if c := read(p); c.Valid() {
			return c, nil
		}
	}
	if c := read("AWS_"); c.Valid() {
		return c, nil
	}
	return Credentials{}, fmt.Errorf("%w: ref=%q (environment)", ErrNotFound, ref)
}

func envPrefix(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	up := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(ref))
	return up + "_"
}
