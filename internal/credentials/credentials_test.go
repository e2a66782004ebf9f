package credentials

import (
	"context"
	"errors"
	"testing"
)

func TestStatic(t *testing.T) {
	s := Static{"aws_credentials": {AccessKey: "AK", SecretKey: "SK"}}

	c, err := s.Credentials(context.Background(), "aws_credentials")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if c.AccessKey != "AK" || c.SecretKey != "SK" {
		t.Fatalf("got %+v", c)
	}

	if _, err := s.Credentials(context.Background(), "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing ref err=%v, want ErrNotFound", err)
	}
}

func TestEnv_PrefixedThenFallback(t *testing.T) {
	vars := map[string]string{
		"AWS_CREDENTIALS_ACCESS_KEY_ID":     "AK1",
		"AWS_CREDENTIALS_SECRET_ACCESS_KEY": "SK1",
		"AWS_ACCESS_KEY_ID":                 "AK2",
		"AWS_SECRET_ACCESS_KEY":             "SK2",
		"AWS_SESSION_TOKEN":                 "TOK",
	}
	e := Env{Lookup: func(k string) (string, bool) { v, ok := vars[k]; return v, ok }}

	c, err := e.Credentials(context.Background(), "aws_credentials")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if c.AccessKey != "AK1" || c.SecretKey != "SK1" || c.SessionToken != "" {
		t.Fatalf("prefixed: got %+v", c)
	}

	c, err = e.Credentials(context.Background(), "redshift-loader")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if c.AccessKey != "AK2" || c.SessionToken != "TOK" {
		t.Fatalf("fallback: got %+v", c)
	}
}

func TestEnv_Missing(t *testing.T) {
	e := Env{Lookup: func(string) (string, bool) { return "", false }}
	if _, err := e.Credentials(context.Background(), "aws_credentials"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}
