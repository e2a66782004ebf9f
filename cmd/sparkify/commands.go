package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sparkify/internal/config"
	"sparkify/internal/credentials"
	"sparkify/internal/dag"
	"sparkify/internal/pipeline"
	"sparkify/internal/schedule"
	"sparkify/internal/sparkify"
	"sparkify/internal/warehouse"
)

// signalContext is cancelled on SIGINT or SIGTERM. A stopped run lets
// in-flight statements finish and dispatches nothing new.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRunCommand(g *globalFlags) *cobra.Command {
	var runDate string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := g.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			p, err := g.loadPipeline()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			closeMetrics := setupMetrics(ctx, p, log)
			defer closeMetrics()

			o, closePool, err := openOrchestrator(ctx, p, log)
			if err != nil {
				return err
			}
			defer closePool()

			res, err := o.Run(ctx, runDate)
			if res != nil {
				printSummary(cmd.OutOrStdout(), o.Graph(), res)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&runDate, "run-date", "", "logical date of the run (YYYY-MM-DD or RFC 3339); empty means now")
	return cmd
}

func printSummary(w io.Writer, g *dag.Graph, res *dag.Result) {
	fmt.Fprintf(w, "run %s (%s) graph %s\n", res.Run.ID, res.Run.Token, res.GraphHash)
	for _, name := range g.TopologicalOrder() {
		fmt.Fprintf(w, "  %-32s %-16s attempts=%d duration=%s\n",
			name, res.FinalState[name], res.Attempts[name], res.Durations[name].Truncate(time.Millisecond))
	}
}

func newScheduleCommand(g *globalFlags) *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := g.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			p, err := g.loadPipeline()
			if err != nil {
				return err
			}
			if spec == "" {
				spec = p.Runtime.Schedule
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			closeMetrics := setupMetrics(ctx, p, log)
			defer closeMetrics()

			o, closePool, err := openOrchestrator(ctx, p, log)
			if err != nil {
				return err
			}
			defer closePool()

			s, err := schedule.New(spec, o, log)
			if err != nil {
				return err
			}
			return s.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "cron spec or descriptor; defaults to runtime.schedule, then "+schedule.DefaultSpec)
	return cmd
}

func newValidateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the pipeline config without touching the warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.loadPipeline()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			issues := config.ValidatePipeline(p)
			for _, iss := range issues {
				fmt.Fprintf(out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintln(out, "configuration is valid")
			return nil
		},
	}
}

func newGraphCommand(g *globalFlags) *cobra.Command {
	var dot bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the task graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.loadPipeline()
			if err != nil {
				return err
			}
			if p.Warehouse.DSN == "" {
				p.Warehouse.DSN = "offline"
			}
			o, err := pipeline.New(p, pipeline.Deps{Warehouse: offlinePool{}, Credentials: credentials.Static{}})
			if err != nil {
				return err
			}
			gr := o.Graph()
			out := cmd.OutOrStdout()
			if dot {
				writeDot(out, gr)
				return nil
			}
			fmt.Fprintf(out, "graph %s\n", gr.Hash())
			for i, level := range gr.Levels() {
				fmt.Fprintf(out, "%d: %s\n", i, strings.Join(level, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dot, "dot", false, "print Graphviz dot instead of levels")
	return cmd
}

func writeDot(w io.Writer, g *dag.Graph) {
	fmt.Fprintln(w, "digraph sparkify {")
	for _, n := range g.Nodes() {
		fmt.Fprintf(w, "  %q [label=%q];\n", n.Name, n.Name+"\n"+string(n.Kind))
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(w, "  %q -> %q;\n", e.From, e.To)
	}
	fmt.Fprintln(w, "}")
}

func newCreateTablesCommand(g *globalFlags) *cobra.Command {
	var (
		drop    bool
		dialect string
	)
	cmd := &cobra.Command{
		Use:   "create-tables",
		Short: "Create the staging and star-schema tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := g.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			p, err := g.loadPipeline()
			if err != nil {
				return err
			}
			if dialect == "" {
				dialect = sparkify.DialectPostgres
				if p.Warehouse.Kind == "redshift" {
					dialect = sparkify.DialectRedshift
				}
			}
			tables, err := sparkify.Tables(dialect)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openWarehouse(ctx, p)
			if err != nil {
				return err
			}
			defer pool.Close()

			return warehouse.WithSession(ctx, pool, func(s warehouse.Session) error {
				if drop {
					for _, t := range sparkify.DropOrder(tables) {
						if err := s.Exec(ctx, t.Drop); err != nil {
							return fmt.Errorf("drop %s: %w", t.Name, err)
						}
						log.Info("table dropped", zap.String("table", t.Name))
					}
				}
				for _, t := range tables {
					if err := s.Exec(ctx, t.Create); err != nil {
						return fmt.Errorf("create %s: %w", t.Name, err)
					}
					log.Info("table created", zap.String("table", t.Name))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d tables (%s)\n", len(tables), dialect)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "drop existing tables first")
	cmd.Flags().StringVar(&dialect, "dialect", "", "redshift or postgres; defaults from warehouse.kind")
	return cmd
}

func newCountsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Print the row count of every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.loadPipeline()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := openWarehouse(ctx, p)
			if err != nil {
				return err
			}
			defer pool.Close()

			pr := message.NewPrinter(language.English)
			out := cmd.OutOrStdout()
			return warehouse.WithSession(ctx, pool, func(s warehouse.Session) error {
				for _, table := range sparkify.TableNames() {
					rows, err := s.Query(ctx, sparkify.CountQuery(table))
					if err != nil {
						return fmt.Errorf("count %s: %w", table, err)
					}
					fmt.Fprintf(out, "%-16s %s\n", table, formatCount(pr, rows))
				}
				return nil
			})
		},
	}
}

func formatCount(pr *message.Printer, rows []warehouse.Row) string {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "-"
	}
	switch v := rows[0][0].(type) {
	case int64:
		return pr.Sprintf("%d", v)
	case float64:
		return pr.Sprintf("%.0f", v)
	default:
		return warehouse.Normalize(v)
	}
}
