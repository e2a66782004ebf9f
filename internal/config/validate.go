package config

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "warehouse.kind",
// "dimensions[1].insert_mode").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// tableName accepts plain or schema-qualified identifiers.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// ValidatePipeline performs static validation of a Pipeline with defaults
// applied. It does not mutate the pipeline.
//
//	issues := config.ValidatePipeline(p)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, errIssue("job", "job must not be empty; it labels logs and metrics"))
	}
	issues = append(issues, validateWarehouse(p.Warehouse)...)
	issues = append(issues, validateCredentials(p.Credentials, p.ObjectStorage)...)
	issues = append(issues, validateStages(p.Stages, p.ObjectStorage)...)
	issues = append(issues, validateFact(p.Fact)...)
	issues = append(issues, validateDimensions(p.Dimensions)...)
	issues = append(issues, validateQuality(p.Quality)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateNames(p)...)
	return issues
}

func errIssue(path, msg string) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: msg}
}

func warnIssue(path, msg string) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: msg}
}

func validateWarehouse(w Warehouse) []Issue {
	var issues []Issue
	switch w.Kind {
	case "redshift", "postgres", "sqlite", "mssql", "clickhouse":
	case "":
		issues = append(issues, errIssue("warehouse.kind", "kind is required"))
	default:
		issues = append(issues, errIssue("warehouse.kind", fmt.Sprintf("unsupported kind %q", w.Kind)))
	}
	if strings.TrimSpace(w.DSN) == "" {
		issues = append(issues, errIssue("warehouse.dsn", "dsn is required"))
	}
	if w.MaxConns < 0 {
		issues = append(issues, errIssue("warehouse.max_conns", "must be >= 0"))
	}
	return issues
}

func validateCredentials(c Credentials, store ObjectStorage) []Issue {
	var issues []Issue
	switch c.Provider {
	case "env", "aws":
	case "static":
		if store.IAMRole == "" {
			if _, ok := c.Static[store.Credentials]; !ok {
				issues = append(issues, errIssue("credentials.static",
					fmt.Sprintf("no static entry for reference %q", store.Credentials)))
			}
		}
	default:
		issues = append(issues, errIssue("credentials.provider", fmt.Sprintf("unsupported provider %q", c.Provider)))
	}
	return issues
}

func validateStages(stages []Stage, store ObjectStorage) []Issue {
	var issues []Issue
	if len(stages) == 0 {
		issues = append(issues, warnIssue("stages", "no stage tasks; the fact load reads whatever is already staged"))
	}
	if store.Credentials == "" && store.IAMRole == "" && len(stages) > 0 {
		issues = append(issues, errIssue("object_storage.credentials", "a credentials reference or iam_role is required"))
	}
	for i, s := range stages {
		path := fmt.Sprintf("stages[%d]", i)
		issues = append(issues, validateTable(path+".table", s.Table)...)
		if s.Bucket == "" && store.Bucket == "" {
			issues = append(issues, errIssue(path+".bucket", "bucket is required (set object_storage.bucket or a per-stage bucket)"))
		}
		if s.Region == "" && store.Region == "" {
			issues = append(issues, errIssue(path+".region", "region is required (set object_storage.region or a per-stage region)"))
		}
		if strings.TrimSpace(s.S3Key) == "" {
			issues = append(issues, warnIssue(path+".s3_key", "empty key copies the whole bucket"))
		} else if _, err := template.New("s3_key").Option("missingkey=error").Parse(s.S3Key); err != nil {
			issues = append(issues, errIssue(path+".s3_key", fmt.Sprintf("invalid template: %v", err)))
		}
	}
	return issues
}

func validateFact(f Fact) []Issue {
	var issues []Issue
	issues = append(issues, validateTable("fact.table", f.Table)...)
	if strings.TrimSpace(f.SQLQuery) == "" {
		issues = append(issues, errIssue("fact.sql_query", "sql_query is required"))
	}
	return issues
}

func validateDimensions(dims []Dimension) []Issue {
	var issues []Issue
	seen := map[string]int{}
	for i, d := range dims {
		path := fmt.Sprintf("dimensions[%d]", i)
		issues = append(issues, validateTable(path+".table", d.Table)...)
		if strings.TrimSpace(d.SQLQuery) == "" {
			issues = append(issues, errIssue(path+".sql_query", "sql_query is required"))
		}
		switch d.InsertMode {
		case InsertAppend, InsertTruncateInsert:
		default:
			issues = append(issues, errIssue(path+".insert_mode",
				fmt.Sprintf("unsupported insert_mode %q (want %s or %s)", d.InsertMode, InsertAppend, InsertTruncateInsert)))
		}
		if j, ok := seen[d.Table]; ok && d.Table != "" {
			issues = append(issues, errIssue(path+".table",
				fmt.Sprintf("table %q is also loaded by dimensions[%d]; parallel loads must target disjoint tables", d.Table, j)))
		}
		seen[d.Table] = i
	}
	return issues
}

func validateQuality(q Quality) []Issue {
	var issues []Issue
	if len(q.TestCases) == 0 {
		issues = append(issues, warnIssue("quality.test_cases", "no test cases; validation always passes"))
	}
	for i, tc := range q.TestCases {
		path := fmt.Sprintf("quality.test_cases[%d]", i)
		if strings.TrimSpace(tc.CheckSQL) == "" {
			issues = append(issues, errIssue(path+".check_sql", "check_sql is required"))
		}
		if tc.ExpectedResult == nil {
			issues = append(issues, errIssue(path+".expected_result", "expected_result is required"))
		}
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	if r.MaxParallel < 0 {
		issues = append(issues, errIssue("runtime.max_parallel", "must be >= 0"))
	}
	if r.Retries < 0 {
		issues = append(issues, errIssue("runtime.retries", "must be >= 0"))
	}
	if r.RetryDelay < 0 || r.MaxRetryDelay < 0 {
		issues = append(issues, errIssue("runtime.retry_delay", "delays must be >= 0"))
	}
	if r.RetryMultiplier != 0 && r.RetryMultiplier < 1 {
		issues = append(issues, errIssue("runtime.retry_multiplier", "must be >= 1"))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "none", "datadog":
	case "statsd":
		if m.StatsdAddr == "" {
			return []Issue{errIssue("metrics.statsd_addr", "statsd_addr is required for the statsd backend")}
		}
	case "pushgateway":
		if m.PushgatewayURL == "" {
			return []Issue{errIssue("metrics.pushgateway_url", "pushgateway_url is required for the pushgateway backend")}
		}
	default:
		return []Issue{errIssue("metrics.backend", fmt.Sprintf("unsupported backend %q", m.Backend))}
	}
	return nil
}

func validateTable(path, name string) []Issue {
	if name == "" {
		return []Issue{errIssue(path, "table is required")}
	}
	if !tableName.MatchString(name) {
		return []Issue{errIssue(path, fmt.Sprintf("invalid table name %q", name))}
	}
	return nil
}

// validateNames rejects task-name collisions across the whole graph.
func validateNames(p Pipeline) []Issue {
	var issues []Issue
	seen := map[string]string{
		"begin_execution": "reserved",
		"stop_execution":  "reserved",
	}
	check := func(path, name string) {
		if name == "" {
			return
		}
		if prev, ok := seen[name]; ok {
			issues = append(issues, errIssue(path, fmt.Sprintf("task name %q collides with %s", name, prev)))
			return
		}
		seen[name] = path
	}
	for i, s := range p.Stages {
		check(fmt.Sprintf("stages[%d].name", i), s.Name)
	}
	check("fact.name", p.Fact.Name)
	for i, d := range p.Dimensions {
		check(fmt.Sprintf("dimensions[%d].name", i), d.Name)
	}
	check("quality.name", p.Quality.Name)
	return issues
}
