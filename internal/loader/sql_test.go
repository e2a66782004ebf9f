package loader

import (
	"strings"
	"testing"

	"sparkify/internal/credentials"
)

func TestCopy_SQLMatchesOperatorTemplate(t *testing.T) {
	c := Copy{
		Table:       "staging_events",
		Source:      S3URI("udacity-dend", "log_data"),
		Credentials: credentials.Credentials{AccessKey: "AKIA123", SecretKey: "s3cr3t"},
		JSONPath:    "s3://udacity-dend/log_json_path.json",
		Region:      "us-west-2",
	}

	want := "\n" +
		"        COPY staging_events\n" +
		"        FROM 's3://udacity-dend/log_data'\n" +
		"        ACCESS_KEY_ID 'AKIA123'\n" +
		"        SECRET_ACCESS_KEY 's3cr3t'\n" +
		"        FORMAT AS JSON 's3://udacity-dend/log_json_path.json'\n" +
		"        REGION AS 'us-west-2';\n" +
		"    "
	if got := c.SQL(); got != want {
		t.Fatalf("SQL() mismatch\ngot:  %q\nwant: %q", got, want)
	}
}

func TestCopy_Redacted(t *testing.T) {
	c := Copy{
		Table:       "staging_songs",
		Source:      "s3://b/song_data",
		Credentials: credentials.Credentials{AccessKey: "AKIA123", SecretKey: "s3cr3t", SessionToken: "tok"},
		JSONPath:    "auto",
		Region:      "us-west-2",
	}
	got := c.Redacted()
	for _, s := range []string{"AKIA123", "s3cr3t", "tok'"} {
		if strings.Contains(got, s) {
			t.Fatalf("Redacted() leaks %q: %q", s, got)
		}
	}
	if !strings.Contains(got, "SESSION_TOKEN '"+redacted+"'") {
		t.Fatalf("Redacted() missing masked session token: %q", got)
	}
	if !strings.Contains(c.SQL(), "        SESSION_TOKEN 'tok'\n") {
		t.Fatalf("SQL() missing session token line: %q", c.SQL())
	}
}

func TestCopy_IAMRole(t *testing.T) {
	c := Copy{
		Table:    "staging_songs",
		Source:   "s3://b/song_data",
		IAMRole:  "arn:aws:iam::123:role/dwhRole",
		JSONPath: "auto",
		Region:   "us-west-2",
	}
	got := c.SQL()
	if !strings.Contains(got, "        IAM_ROLE 'arn:aws:iam::123:role/dwhRole'\n") {
		t.Fatalf("SQL() missing IAM_ROLE: %q", got)
	}
	if strings.Contains(got, "ACCESS_KEY_ID") {
		t.Fatalf("SQL() has key lines with IAM role: %q", got)
	}
}

func TestCopy_QuotesValues(t *testing.T) {
	c := Copy{Table: "t", Source: "s3://b/it's", JSONPath: "auto", Region: "r",
		Credentials: credentials.Credentials{AccessKey: "a", SecretKey: "b'c"}}
	got := c.SQL()
	if !strings.Contains(got, "FROM 's3://b/it''s'") || !strings.Contains(got, "SECRET_ACCESS_KEY 'b''c'") {
		t.Fatalf("SQL() did not double quotes: %q", got)
	}
}

func TestInsertAndDelete(t *testing.T) {
	if got, want := InsertSelect("songplays", nil, "SELECT DISTINCT 1"), "INSERT INTO songplays SELECT DISTINCT 1"; got != want {
		t.Fatalf("InsertSelect=%q, want %q", got, want)
	}
	if got, want := InsertSelect("users", []string{"user_id", "level"}, "SELECT 1, 'free'"), "INSERT INTO users (user_id, level) SELECT 1, 'free'"; got != want {
		t.Fatalf("InsertSelect=%q, want %q", got, want)
	}
	if got, want := DeleteAll("users"), "DELETE FROM users"; got != want {
		t.Fatalf("DeleteAll=%q, want %q", got, want)
	}
}
