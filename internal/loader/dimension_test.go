package loader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sparkify/internal/warehouse"
	_ "sparkify/internal/warehouse/sqlite"
)

const usersSelect = `
    SELECT DISTINCT userId, firstName, lastName, gender, level
    FROM staging_events
    WHERE page = 'NextSong'`

func sqliteEnv(t *testing.T) (Env, warehouse.Pool) {
	t.Helper()
	ctx := context.Background()
	pool, err := warehouse.New(ctx, warehouse.Config{Kind: "sqlite", DSN: filepath.Join(t.TempDir(), "wh.db")})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	exec(t, pool,
		`CREATE TABLE staging_events (userId INTEGER, firstName TEXT, lastName TEXT, gender TEXT, level TEXT, page TEXT)`,
		`CREATE TABLE users (user_id INTEGER, first_name TEXT, last_name TEXT, gender TEXT, level TEXT)`,
		`INSERT INTO staging_events VALUES
			(1, 'Ada', 'L', 'F', 'free', 'NextSong'),
			(1, 'Ada', 'L', 'F', 'free', 'NextSong'),
			(2, 'Bo', 'K', 'M', 'paid', 'NextSong'),
			(3, 'Cy', 'P', 'M', 'free', 'Home')`,
	)
	return Env{Warehouse: pool}, pool
}

func exec(t *testing.T, p warehouse.Pool, stmts ...string) {
	t.Helper()
	err := warehouse.WithSession(context.Background(), p, func(s warehouse.Session) error {
		for _, st := range stmts {
			if err := s.Exec(context.Background(), st); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func count(t *testing.T, p warehouse.Pool, table string) int {
	t.Helper()
	var rows []warehouse.Row
	err := warehouse.WithSession(context.Background(), p, func(s warehouse.Session) error {
		var err error
		rows, err = s.Query(context.Background(), "SELECT COUNT(*) FROM "+table)
		return err
	})
	require.NoError(t, err)
	n, ok := rows[0][0].(int64)
	require.True(t, ok, "count type %T", rows[0][0])
	return int(n)
}

func TestDimension_TruncateInsertIsIdempotent(t *testing.T) {
	env, pool := sqliteEnv(t)
	d, err := NewDimension("load_users_dim_table", "users", nil, usersSelect, TruncateInsert, env)
	require.NoError(t, err)

	require.NoError(t, d.Run(context.Background(), testRun))
	first := count(t, pool, "users")
	require.Equal(t, 2, first)

	require.NoError(t, d.Run(context.Background(), testRun))
	require.Equal(t, first, count(t, pool, "users"))
}

func TestDimension_AppendGrows(t *testing.T) {
	env, pool := sqliteEnv(t)
	d, err := NewDimension("load_users_dim_table", "users", nil, usersSelect, Append, env)
	require.NoError(t, err)

	prev := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Run(context.Background(), testRun))
		n := count(t, pool, "users")
		require.Greater(t, n, prev)
		prev = n
	}
	require.Equal(t, 6, prev)
}

func TestDimension_StatementsOrder(t *testing.T) {
	env, _ := sqliteEnv(t)
	d, err := NewDimension("load_users_dim_table", "users", nil, "SELECT 1", TruncateInsert, env)
	require.NoError(t, err)
	require.Equal(t, []string{"DELETE FROM users", "INSERT INTO users SELECT 1"}, d.Statements())

	d, err = NewDimension("load_users_dim_table", "users", nil, "SELECT 1", Append, env)
	require.NoError(t, err)
	require.Equal(t, []string{"INSERT INTO users SELECT 1"}, d.Statements())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, Append, m)

	m, err = ParseMode("truncate-insert")
	require.NoError(t, err)
	require.Equal(t, TruncateInsert, m)

	_, err = ParseMode("merge")
	require.Error(t, err)

	_, err = NewDimension("d", "users", nil, "SELECT 1", Mode("merge"), Env{})
	require.Error(t, err)
}

func TestDimension_FailedDeleteSkipsInsert(t *testing.T) {
	env, pool := sqliteEnv(t)
	d, err := NewDimension("load_missing_dim_table", "missing", nil, "SELECT 1", TruncateInsert, env)
	require.NoError(t, err)

	err = d.Run(context.Background(), testRun)
	var se *StatementError
	require.ErrorAs(t, err, &se)
	require.Equal(t, ClassData, se.Class)
	require.Equal(t, "DELETE FROM missing", se.SQL)
	require.Equal(t, 0, count(t, pool, "users"))
}

func TestFact_AppendsSelect(t *testing.T) {
	env, pool := sqliteEnv(t)
	f, err := NewFact("load_songplays_fact_table", "users", []string{"user_id", "first_name", "last_name", "gender", "level"}, usersSelect, env)
	require.NoError(t, err)

	require.NoError(t, f.Run(context.Background(), testRun))
	require.NoError(t, f.Run(context.Background(), testRun))
	require.Equal(t, 4, count(t, pool, "users"))
}
