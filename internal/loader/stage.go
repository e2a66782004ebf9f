package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"sparkify/internal/dag"
)

// ErrNoSourceObjects is returned by a stage preflight that finds nothing to copy.
var ErrNoSourceObjects = errors.New("no source objects")

// StageSpec configures a Stage task.
type StageSpec struct {
	Name  string
	Table string
	// Bucket and Key locate the source; Key is a text/template rendered
	// with the dag.Run (e.g. "log_data/{{.LogicalDate.Format \"2006/01\"}}").
	Bucket   string
	Key      string
	JSONPath string
	Region   string
	// CredentialsRef is resolved per attempt unless IAMRole is set.
	CredentialsRef string
	IAMRole        string
	Preflight      bool
}

// Stage bulk-copies JSON files from object storage into a staging table.
// Rows are appended; nothing is deduplicated.
type Stage struct {
	spec StageSpec
	key  *template.Template
	env  Env
}

// NewStage validates spec and parses the key template.
func NewStage(spec StageSpec, env Env) (*Stage, error) {
	if spec.Name == "" || spec.Table == "" {
		return nil, fmt.Errorf("stage: name and table are required")
	}
	if env.Warehouse == nil {
		return nil, fmt.Errorf("stage %s: nil warehouse", spec.Name)
	}
	if spec.IAMRole == "" && env.Credentials == nil {
		return nil, fmt.Errorf("stage %s: nil credentials provider", spec.Name)
	}
	if spec.JSONPath == "" {
		spec.JSONPath = "auto"
	}
	tmpl, err := template.New(spec.Name).Option("missingkey=error").Parse(spec.Key)
	if err != nil {
		return nil, fmt.Errorf("stage %s: parse s3 key template: %w", spec.Name, err)
	}
	return &Stage{spec: spec, key: tmpl, env: env}, nil
}

func (s *Stage) Name() string   { return s.spec.Name }
func (s *Stage) Kind() dag.Kind { return dag.KindStage }

// Source renders the s3:// URI this stage copies from for the given run.
func (s *Stage) Source(run dag.Run) (string, error) {
	key, err := s.renderKey(run)
	if err != nil {
		return "", err
	}
	return S3URI(s.spec.Bucket, key), nil
}

func (s *Stage) renderKey(run dag.Run) (string, error) {
	var b strings.Builder
	if err := s.key.Execute(&b, run); err != nil {
		return "", fmt.Errorf("render s3 key: %w", err)
	}
	return b.String(), nil
}

func (s *Stage) Run(ctx context.Context, run dag.Run) error {
	log := s.env.logger()

	key, err := s.renderKey(run)
	if err != nil {
		return fmt.Errorf("task %s: %w", s.spec.Name, err)
	}
	source := S3URI(s.spec.Bucket, key)

	if s.spec.Preflight && s.env.Objects != nil {
		n, err := s.env.Objects.CountObjects(ctx, s.spec.Bucket, key)
		if err != nil {
			return fmt.Errorf("task %s: preflight: %w", s.spec.Name, err)
		}
		if n == 0 {
			return &StatementError{
				Task:  s.spec.Name,
				Class: ClassData,
				SQL:   "LIST " + source,
				Err:   fmt.Errorf("%w under %s", ErrNoSourceObjects, source),
			}
		}
	}

	cp := Copy{
		Table:    s.spec.Table,
		Source:   source,
		IAMRole:  s.spec.IAMRole,
		JSONPath: s.spec.JSONPath,
		Region:   s.spec.Region,
	}
	if cp.IAMRole == "" {
		creds, err := s.env.Credentials.Credentials(ctx, s.spec.CredentialsRef)
		if err != nil {
			return fmt.Errorf("task %s: credentials %q: %w", s.spec.Name, s.spec.CredentialsRef, err)
		}
		cp.Credentials = creds
	}

	log.Info("staging",
		zap.String("task", s.spec.Name),
		zap.String("table", s.spec.Table),
		zap.String("source", source))

	return execStatements(ctx, s.env, s.spec.Name, []statement{{
		sql:     cp.SQL(),
		display: cp.Redacted(),
		secrets: cp.secrets(),
	}})
}
