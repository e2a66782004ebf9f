// Package loader implements the warehouse tasks of the pipeline: staging
// copies from object storage, the fact load and dimension loads. All of them
// follow one template: acquire a session, run the statements in order,
// release the session. They differ only in the statements they build.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sparkify/internal/credentials"
	"sparkify/internal/objectstore"
	"sparkify/internal/warehouse"
)

// Env carries the collaborators shared by every loader.
type Env struct {
	Warehouse   warehouse.Pool
	Credentials credentials.Provider
	// Objects is optional; it enables stage preflight checks.
	Objects objectstore.Lister
	Logger  *zap.Logger
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

type statement struct {
	sql     string
	display string
	secrets []string
}

func plain(sql string) statement { return statement{sql: sql, display: sql} }

// execStatements runs stmts in order on one session. The first failure stops
// the task; later statements are not issued.
func execStatements(ctx context.Context, env Env, task string, stmts []statement) error {
	log := env.logger()
	err := warehouse.WithSession(ctx, env.Warehouse, func(s warehouse.Session) error {
		for _, st := range stmts {
			start := time.Now()
			if err := s.Exec(ctx, st.sql); err != nil {
				return newStatementError(task, st.display, err, st.secrets)
			}
			log.Info("statement ok",
				zap.String("task", task),
				zap.String("sql", abbreviate(st.display)),
				zap.Duration("duration", time.Since(start)))
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var se *StatementError
	if errors.As(err, &se) {
		return err
	}
	return fmt.Errorf("task %s: %s error: %w", task, ClassConnectivity, err)
}
