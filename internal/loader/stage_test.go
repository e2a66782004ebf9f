package loader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sparkify/internal/credentials"
	"sparkify/internal/dag"
	"sparkify/internal/warehouse"
	"sparkify/internal/warehouse/warehousetest"
)

type fakeLister struct {
	n         int
	err       error
	gotPrefix string
}

func (f *fakeLister) CountObjects(ctx context.Context, bucket, prefix string) (int, error) {
	f.gotPrefix = prefix
	return f.n, f.err
}

type countingProvider struct {
	credentials.Static
	calls int
}

func (c *countingProvider) Credentials(ctx context.Context, ref string) (credentials.Credentials, error) {
	c.calls++
	return c.Static.Credentials(ctx, ref)
}

func eventsSpec() StageSpec {
	return StageSpec{
		Name:           "stage_events",
		Table:          "staging_events",
		Bucket:         "udacity-dend",
		Key:            `log_data/{{.LogicalDate.Format "2006/01"}}/{{.LogicalDate.Format "2006-01-02"}}-events.json`,
		JSONPath:       "s3://udacity-dend/log_json_path.json",
		Region:         "us-west-2",
		CredentialsRef: "aws_credentials",
	}
}

var testRun = dag.Run{ID: "r1", Token: "2018-11-05", LogicalDate: time.Date(2018, 11, 5, 0, 0, 0, 0, time.UTC)}

func TestStage_IssuesOneCopyPerRun(t *testing.T) {
	pool := &warehousetest.Pool{}
	creds := &countingProvider{Static: credentials.Static{"aws_credentials": {AccessKey: "AK", SecretKey: "SK"}}}

	s, err := NewStage(eventsSpec(), Env{Warehouse: pool, Credentials: creds})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}
	if s.Kind() != dag.KindStage {
		t.Fatalf("Kind()=%s", s.Kind())
	}
	if err := s.Run(context.Background(), testRun); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stmts := pool.Statements()
	if len(stmts) != 1 {
		t.Fatalf("statements=%d, want 1: %q", len(stmts), stmts)
	}
	wantFrom := "FROM 's3://udacity-dend/log_data/2018/11/2018-11-05-events.json'"
	if !strings.Contains(stmts[0], wantFrom) {
		t.Fatalf("statement %q missing %q", stmts[0], wantFrom)
	}
	if !strings.Contains(stmts[0], "ACCESS_KEY_ID 'AK'") {
		t.Fatalf("statement missing credentials: %q", stmts[0])
	}
	if creds.calls != 1 {
		t.Fatalf("credential lookups=%d, want 1", creds.calls)
	}
	if pool.Released() != 1 {
		t.Fatalf("released=%d, want 1", pool.Released())
	}
}

func TestStage_ErrorRedactsSecrets(t *testing.T) {
	pool := &warehousetest.Pool{ExecErr: map[string]error{
		"COPY": errors.New("S3ServiceException: access denied for key SK"),
	}}
	s, err := NewStage(eventsSpec(), Env{Warehouse: pool, Credentials: credentials.Static{"aws_credentials": {AccessKey: "AK", SecretKey: "SK"}}})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}

	err = s.Run(context.Background(), testRun)
	var se *StatementError
	if !errors.As(err, &se) {
		t.Fatalf("Run err=%v, want *StatementError", err)
	}
	if se.Class != ClassData {
		t.Fatalf("Class=%s, want %s", se.Class, ClassData)
	}
	msg := err.Error()
	if strings.Contains(msg, "'AK'") || strings.Contains(msg, "SK") {
		t.Fatalf("error leaks credentials: %s", msg)
	}
	if !strings.Contains(msg, "COPY staging_events") {
		t.Fatalf("error does not name the statement: %s", msg)
	}
	if pool.Released() != 1 {
		t.Fatalf("session not released on error")
	}
}

func TestStage_AcquireFailureIsConnectivity(t *testing.T) {
	pool := &warehousetest.Pool{AcquireErr: errors.New("dial tcp 10.0.0.1:5439: i/o timeout")}
	s, _ := NewStage(eventsSpec(), Env{Warehouse: pool, Credentials: credentials.Static{"aws_credentials": {AccessKey: "AK", SecretKey: "SK"}}})

	err := s.Run(context.Background(), testRun)
	if !warehouse.IsConnectivity(err) {
		t.Fatalf("IsConnectivity(%v)=false, want true", err)
	}
	if !strings.Contains(err.Error(), "connectivity") {
		t.Fatalf("err=%v, want class in message", err)
	}
}

func TestStage_CredentialsFailure(t *testing.T) {
	pool := &warehousetest.Pool{}
	s, _ := NewStage(eventsSpec(), Env{Warehouse: pool, Credentials: credentials.Static{}})

	err := s.Run(context.Background(), testRun)
	if !errors.Is(err, credentials.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if n := len(pool.Statements()); n != 0 {
		t.Fatalf("statements=%d, want 0", n)
	}
}

func TestStage_IAMRoleSkipsCredentials(t *testing.T) {
	pool := &warehousetest.Pool{}
	spec := eventsSpec()
	spec.IAMRole = "arn:aws:iam::123:role/dwhRole"

	s, err := NewStage(spec, Env{Warehouse: pool})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}
	if err := s.Run(context.Background(), testRun); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(pool.Statements()[0], "IAM_ROLE 'arn:aws:iam::123:role/dwhRole'") {
		t.Fatalf("statement=%q", pool.Statements()[0])
	}
}

func TestStage_PreflightEmptyPrefix(t *testing.T) {
	pool := &warehousetest.Pool{}
	lister := &fakeLister{n: 0}
	spec := eventsSpec()
	spec.Preflight = true

	s, _ := NewStage(spec, Env{Warehouse: pool, Objects: lister, Credentials: credentials.Static{"aws_credentials": {AccessKey: "AK", SecretKey: "SK"}}})
	err := s.Run(context.Background(), testRun)
	if !errors.Is(err, ErrNoSourceObjects) {
		t.Fatalf("err=%v, want ErrNoSourceObjects", err)
	}
	var se *StatementError
	if !errors.As(err, &se) || se.Class != ClassData {
		t.Fatalf("err=%v, want data-class *StatementError", err)
	}
	if lister.gotPrefix != "log_data/2018/11/2018-11-05-events.json" {
		t.Fatalf("prefix=%q", lister.gotPrefix)
	}
	if n := len(pool.Statements()); n != 0 {
		t.Fatalf("statements=%d, want 0", n)
	}
}

func TestNewStage_Rejects(t *testing.T) {
	pool := &warehousetest.Pool{}
	spec := eventsSpec()
	spec.Key = "log_data/{{.LogicalDate"
	if _, err := NewStage(spec, Env{Warehouse: pool, Credentials: credentials.Static{}}); err == nil {
		t.Fatalf("NewStage(bad template) err=nil")
	}
	if _, err := NewStage(eventsSpec(), Env{Credentials: credentials.Static{}}); err == nil {
		t.Fatalf("NewStage(nil warehouse) err=nil")
	}
	if _, err := NewStage(eventsSpec(), Env{Warehouse: pool}); err == nil {
		t.Fatalf("NewStage(nil credentials) err=nil")
	}
}

func TestStage_UnknownTemplateFieldFailsRun(t *testing.T) {
	pool := &warehousetest.Pool{}
	spec := eventsSpec()
	spec.Key = "log_data/{{.Nope}}"
	s, err := NewStage(spec, Env{Warehouse: pool, Credentials: credentials.Static{}})
	if err != nil {
		t.Fatalf("NewStage: %v", err)
	}
	if err := s.Run(context.Background(), testRun); err == nil {
		t.Fatalf("Run err=nil, want render error")
	}
}
