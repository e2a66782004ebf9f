// Package config defines the configuration model for the Sparkify pipeline.
// Pipelines are loaded from JSON or YAML files and passed explicitly to the
// components that need them; nothing here is global.
//
// Example (trimmed):
//
//	job: sparkify
//	warehouse: {kind: redshift, dsn: "${REDSHIFT_DSN}"}
//	object_storage: {bucket: udacity-dend, region: us-west-2, credentials: aws_credentials}
//	stages:
//	  - {table: staging_events, s3_key: "log_data/{{.LogicalDate.Year}}", json_path: "s3://udacity-dend/log_json_path.json"}
//	fact: {table: songplays, sql_query: "SELECT ..."}
//	dimensions:
//	  - {table: users, sql_query: "SELECT ...", insert_mode: truncate-insert}
//	quality:
//	  test_cases: [{check_sql: "SELECT COUNT(*) FROM users", expected_result: 104}]
package config

// Insert modes for dimension loads.
const (
	InsertAppend         = "append"
	InsertTruncateInsert = "truncate-insert"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the pipeline in logs and metrics.
	Job string `json:"job" yaml:"job"`

	Warehouse     Warehouse     `json:"warehouse" yaml:"warehouse"`
	ObjectStorage ObjectStorage `json:"object_storage" yaml:"object_storage"`
	Credentials   Credentials   `json:"credentials" yaml:"credentials"`

	Stages     []Stage     `json:"stages" yaml:"stages"`
	Fact       Fact        `json:"fact" yaml:"fact"`
	Dimensions []Dimension `json:"dimensions" yaml:"dimensions"`
	Quality    Quality     `json:"quality" yaml:"quality"`

	Runtime Runtime `json:"runtime" yaml:"runtime"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// Warehouse selects the warehouse backend. Kind is one of the registered
// backends: redshift, postgres, sqlite, mssql, clickhouse.
type Warehouse struct {
	Kind     string `json:"kind" yaml:"kind"`
	DSN      string `json:"dsn" yaml:"dsn"`
	MaxConns int    `json:"max_conns" yaml:"max_conns"`
}

// ObjectStorage holds the defaults shared by every stage task.
type ObjectStorage struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Region string `json:"region" yaml:"region"`
	// Credentials is the reference handed to the credentials provider.
	Credentials string `json:"credentials" yaml:"credentials"`
	// IAMRole, when set, makes COPY authorize with the role instead of keys.
	IAMRole string `json:"iam_role" yaml:"iam_role"`
	// Preflight lists the source prefix before COPY and fails on zero objects.
	Preflight bool `json:"preflight" yaml:"preflight"`
}

// Credentials selects the credentials provider: env (default), static or aws.
type Credentials struct {
	Provider string               `json:"provider" yaml:"provider"`
	Static   map[string]StaticKey `json:"static" yaml:"static"`
}

// StaticKey is an inline key pair for the static provider.
type StaticKey struct {
	AccessKey    string `json:"access_key" yaml:"access_key"`
	SecretKey    string `json:"secret_key" yaml:"secret_key"`
	SessionToken string `json:"session_token" yaml:"session_token"`
}

// Stage is one bulk copy from object storage into a staging table.
type Stage struct {
	// Name defaults to "stage_<table>".
	Name  string `json:"name" yaml:"name"`
	Table string `json:"table" yaml:"table"`
	// S3Key is a text/template rendered with the run (Token, LogicalDate, ID).
	S3Key string `json:"s3_key" yaml:"s3_key"`
	// JSONPath defaults to "auto".
	JSONPath string `json:"json_path" yaml:"json_path"`
	// Bucket and Region override ObjectStorage for this stage.
	Bucket string `json:"bucket" yaml:"bucket"`
	Region string `json:"region" yaml:"region"`
}

// Fact is the fact-table load.
type Fact struct {
	// Name defaults to "load_<table>_fact_table".
	Name     string `json:"name" yaml:"name"`
	Table    string `json:"table" yaml:"table"`
	SQLQuery string `json:"sql_query" yaml:"sql_query"`
	// Columns, when set, become the INSERT column list.
	Columns []string `json:"columns" yaml:"columns"`
}

// Dimension is one dimension-table load.
type Dimension struct {
	// Name defaults to "load_<table>_dim_table".
	Name     string   `json:"name" yaml:"name"`
	Table    string   `json:"table" yaml:"table"`
	SQLQuery string   `json:"sql_query" yaml:"sql_query"`
	Columns  []string `json:"columns" yaml:"columns"`
	// InsertMode is append (default) or truncate-insert.
	InsertMode string `json:"insert_mode" yaml:"insert_mode"`
}

// Quality is the data quality gate.
type Quality struct {
	// Name defaults to "run_data_quality_checks".
	Name      string     `json:"name" yaml:"name"`
	TestCases []TestCase `json:"test_cases" yaml:"test_cases"`
}

// TestCase pairs a query with the scalar its first column must equal.
type TestCase struct {
	CheckSQL       string `json:"check_sql" yaml:"check_sql"`
	ExpectedResult any    `json:"expected_result" yaml:"expected_result"`
}

// Runtime controls parallelism, retries and the schedule.
type Runtime struct {
	MaxParallel     int      `json:"max_parallel" yaml:"max_parallel"`
	Retries         int      `json:"retries" yaml:"retries"`
	RetryDelay      Duration `json:"retry_delay" yaml:"retry_delay"`
	RetryMultiplier float64  `json:"retry_multiplier" yaml:"retry_multiplier"`
	MaxRetryDelay   Duration `json:"max_retry_delay" yaml:"max_retry_delay"`
	// Schedule is a cron spec or descriptor (e.g. "@hourly") for the scheduler.
	Schedule string `json:"schedule" yaml:"schedule"`
}

// Metrics selects the metrics backend: none (default), datadog, statsd or
// pushgateway.
type Metrics struct {
	Backend        string   `json:"backend" yaml:"backend"`
	Tags           []string `json:"tags" yaml:"tags"`
	StatsdAddr     string   `json:"statsd_addr" yaml:"statsd_addr"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	FlushEvery     Duration `json:"flush_every" yaml:"flush_every"`
}
