package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

const sqliteConfig = `job: sparkify-local
warehouse:
  kind: sqlite
  dsn: %DSN%
fact:
  table: songplays
  columns: [start_time, user_id]
  sql_query: SELECT ts, userId FROM staging_events WHERE page = 'NextSong'
dimensions:
  - table: users
    columns: [user_id, first_name, last_name, gender, level]
    sql_query: SELECT DISTINCT userId, firstName, lastName, gender, level FROM staging_events WHERE page = 'NextSong'
    insert_mode: truncate-insert
quality:
  test_cases:
    - check_sql: SELECT COUNT(*) = 0 FROM users
      expected_result: 1
`

func writeSQLiteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := strings.ReplaceAll(sqliteConfig, "%DSN%", filepath.Join(dir, "warehouse.db"))
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestValidate_BuiltInPipeline(t *testing.T) {
	t.Setenv("REDSHIFT_DSN", "postgres://awsuser@example.redshift.amazonaws.com:5439/dev")
	out, err := execute(t, "validate")
	require.NoError(t, err)
	require.Contains(t, out, "configuration is valid")
}

func TestValidate_MissingDSN(t *testing.T) {
	t.Setenv("REDSHIFT_DSN", "")
	out, err := execute(t, "validate")
	require.Error(t, err)
	require.Contains(t, out, "warehouse.dsn")
}

func TestValidate_ExampleConfig(t *testing.T) {
	t.Setenv("REDSHIFT_DSN", "postgres://awsuser@example.redshift.amazonaws.com:5439/dev")
	out, err := execute(t, "validate", "-c", filepath.Join("..", "..", "configs", "sparkify.yaml"))
	require.NoError(t, err)
	require.Contains(t, out, "configuration is valid")
}

func TestGraph_Levels(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	require.Contains(t, out, "0: begin_execution")
	require.Contains(t, out, "1: stage_events, stage_songs")
	require.Contains(t, out, "2: load_songplays_fact_table")
	require.Contains(t, out, "4: run_data_quality_checks")
}

func TestGraph_Dot(t *testing.T) {
	out, err := execute(t, "graph", "--dot")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "digraph sparkify {"))
	require.Contains(t, out, `"load_songplays_fact_table" -> "load_user_dim_table";`)
}

func TestCreateTablesRunAndCounts_SQLite(t *testing.T) {
	cfg := writeSQLiteConfig(t)

	out, err := execute(t, "create-tables", "--config", cfg)
	require.NoError(t, err)
	require.Contains(t, out, "created 7 tables (postgres)")

	out, err = execute(t, "run", "--config", cfg, "--run-date", "2018-11-01")
	require.NoError(t, err)
	require.Contains(t, out, "(2018-11-01)")
	require.Contains(t, out, "load_songplays_fact_table")
	require.NotContains(t, out, "failed")

	out, err = execute(t, "counts", "--config", cfg)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	require.Equal(t, []string{"staging_events", "0"}, strings.Fields(lines[0]))
}

func TestCreateTables_UnknownDialect(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	_, err := execute(t, "create-tables", "--config", cfg, "--dialect", "oracle")
	require.Error(t, err)
}

func TestRun_BadConfigPath(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
