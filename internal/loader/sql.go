package loader

import (
	"fmt"
	"strings"

	"sparkify/internal/credentials"
)

const redacted = "********"

// Copy describes one JSON bulk copy from object storage.
//
// With access keys the rendered statement is:
//
//	COPY {table}
//	FROM 's3://{bucket}/{key}'
//	ACCESS_KEY_ID '{ak}'
//	SECRET_ACCESS_KEY '{sk}'
//	FORMAT AS JSON '{json_path}'
//	REGION AS '{region}';
//
// each line indented by eight spaces, preceded by a newline and followed by a
// newline and four spaces. A session token adds a SESSION_TOKEN line after
// the secret key; an IAM role replaces both key lines with IAM_ROLE.
type Copy struct {
	Table       string
	Source      string
	Credentials credentials.Credentials
	IAMRole     string
	JSONPath    string
	Region      string
}

// S3URI joins bucket and key as s3://bucket/key.
func S3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// SQL renders the statement with real secrets. Never log it.
func (c Copy) SQL() string { return c.render(false) }

// Redacted renders the statement with secrets masked.
func (c Copy) Redacted() string { return c.render(true) }

// secrets returns the values that must never appear in logs.
func (c Copy) secrets() []string {
	var out []string
	for _, s := range []string{c.Credentials.AccessKey, c.Credentials.SecretKey, c.Credentials.SessionToken} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Copy) render(mask bool) string {
	secret := func(s string) string {
		if mask {
			return redacted
		}
		return quote(s)
	}

	lines := []string{
		"COPY " + c.Table,
		"FROM '" + quote(c.Source) + "'",
	}
	if c.IAMRole != "" {
		lines = append(lines, "IAM_ROLE '"+quote(c.IAMRole)+"'")
	} else {
		lines = append(lines,
			"ACCESS_KEY_ID '"+secret(c.Credentials.AccessKey)+"'",
			"SECRET_ACCESS_KEY '"+secret(c.Credentials.SecretKey)+"'",
		)
		if c.Credentials.SessionToken != "" {
			lines = append(lines, "SESSION_TOKEN '"+secret(c.Credentials.SessionToken)+"'")
		}
	}
	lines = append(lines,
		"FORMAT AS JSON '"+quote(c.JSONPath)+"'",
		"REGION AS '"+quote(c.Region)+"';",
	)

	var b strings.Builder
	b.WriteString("\n")
	for _, l := range lines {
		b.WriteString("        ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("    ")
	return b.String()
}

// InsertSelect renders INSERT INTO <table> [(<columns>)] <query>. The query
// is used as written, so its own DISTINCT or filters decide deduplication.
func InsertSelect(table string, columns []string, query string) string {
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s %s", table, query)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) %s", table, strings.Join(columns, ", "), query)
}

// DeleteAll renders the truncate step of a truncate-insert load. DELETE is
// used rather than TRUNCATE because TRUNCATE commits implicitly on Redshift.
func DeleteAll(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// redact masks every secret in s.
func redact(s string, secrets []string) string {
	for _, sec := range secrets {
		s = strings.ReplaceAll(s, sec, redacted)
	}
	return s
}
