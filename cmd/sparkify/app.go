package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"sparkify/internal/config"
	"sparkify/internal/credentials"
	"sparkify/internal/logging"
	"sparkify/internal/metrics"
	"sparkify/internal/metrics/datadog"
	"sparkify/internal/metrics/prompush"
	"sparkify/internal/metrics/statsd"
	"sparkify/internal/objectstore"
	"sparkify/internal/pipeline"
	"sparkify/internal/sparkify"
	"sparkify/internal/warehouse"

	// register every warehouse backend; the config picks one.
	_ "sparkify/internal/warehouse/all"
)

func (g *globalFlags) logger() (*zap.Logger, error) {
	return logging.New(logging.Options{Level: g.logLevel, File: g.logFile})
}

// loadPipeline reads the config file, or returns the built-in pipeline with
// environment references expanded.
func (g *globalFlags) loadPipeline() (config.Pipeline, error) {
	if g.configPath == "" {
		p := sparkify.DefaultPipeline()
		p.ExpandEnv()
		return p, nil
	}
	return config.Load(g.configPath)
}

func openWarehouse(ctx context.Context, p config.Pipeline) (warehouse.Pool, error) {
	return warehouse.New(ctx, warehouse.Config{
		Kind:     p.Warehouse.Kind,
		DSN:      p.Warehouse.DSN,
		MaxConns: p.Warehouse.MaxConns,
	})
}

// newCredentials builds the configured provider. The AWS provider is also
// returned on its own so its sessions can back the S3 preflight.
func newCredentials(p config.Pipeline) (credentials.Provider, *credentials.AWS, error) {
	switch p.Credentials.Provider {
	case "", "env":
		return credentials.Env{}, nil, nil
	case "static":
		s := credentials.Static{}
		for ref, k := range p.Credentials.Static {
			s[ref] = credentials.Credentials{AccessKey: k.AccessKey, SecretKey: k.SecretKey, SessionToken: k.SessionToken}
		}
		return s, nil, nil
	case "aws":
		a := &credentials.AWS{Region: p.ObjectStorage.Region}
		return a, a, nil
	default:
		return nil, nil, fmt.Errorf("unsupported credentials provider %q", p.Credentials.Provider)
	}
}

// newObjects returns an S3 lister when stage preflight is on.
func newObjects(p config.Pipeline, a *credentials.AWS) (objectstore.Lister, error) {
	if !p.ObjectStorage.Preflight {
		return nil, nil
	}
	profile := ""
	if a != nil {
		profile = p.ObjectStorage.Credentials
	} else {
		a = &credentials.AWS{Region: p.ObjectStorage.Region}
	}
	sess, err := a.Session(profile)
	if err != nil {
		return nil, fmt.Errorf("s3 preflight: %w", err)
	}
	return objectstore.NewS3(sess), nil
}

// openOrchestrator opens the warehouse and builds the pipeline. The returned
// close func releases the pool.
func openOrchestrator(ctx context.Context, p config.Pipeline, log *zap.Logger) (*pipeline.Orchestrator, func(), error) {
	creds, aws, err := newCredentials(p)
	if err != nil {
		return nil, nil, err
	}
	objects, err := newObjects(p, aws)
	if err != nil {
		return nil, nil, err
	}
	pool, err := openWarehouse(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	o, err := pipeline.New(p, pipeline.Deps{
		Warehouse:   pool,
		Credentials: creds,
		Objects:     objects,
		Logger:      log,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return o, pool.Close, nil
}

// setupMetrics installs the configured metrics backend. Init failures are
// logged and leave metrics disabled. The returned func flushes and closes.
func setupMetrics(ctx context.Context, p config.Pipeline, log *zap.Logger) func() {
	m := p.Metrics
	var closeFn func() error
	// Outlive the run's signal context so the tail flush still lands.
	ctx = context.WithoutCancel(ctx)

	switch m.Backend {
	case "datadog":
		tags := append(append([]string(nil), m.Tags...), datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))...)
		b, err := datadog.NewBackend(ctx, datadog.Options{JobName: p.Job, Tags: tags, FlushEvery: m.FlushEvery.Std()})
		if err != nil {
			log.Warn("metrics: datadog init failed; metrics disabled", zap.Error(err))
			return func() {}
		}
		metrics.SetBackend(b)
		closeFn = b.Close
	case "statsd":
		b, err := statsd.NewBackend(statsd.Config{Addr: m.StatsdAddr, Tags: append([]string{"job:" + p.Job}, m.Tags...)})
		if err != nil {
			log.Warn("metrics: statsd init failed; metrics disabled", zap.Error(err))
			return func() {}
		}
		metrics.SetBackend(b)
		closeFn = b.Close
	case "pushgateway":
		b, err := prompush.NewBackend(p.Job, m.PushgatewayURL)
		if err != nil {
			log.Warn("metrics: pushgateway init failed; metrics disabled", zap.Error(err))
			return func() {}
		}
		metrics.SetBackend(b)
		closeFn = b.Flush
	default:
		return func() {}
	}

	log.Info("metrics enabled", zap.String("backend", m.Backend), zap.String("job", p.Job))
	return func() {
		if err := closeFn(); err != nil {
			log.Warn("metrics: flush failed", zap.Error(err))
		}
		metrics.SetBackend(nil)
	}
}

// errOffline is returned by the pool used for commands that only inspect the
// pipeline.
var errOffline = errors.New("warehouse not opened")

type offlinePool struct{}

func (offlinePool) Acquire(context.Context) (warehouse.Session, error) { return nil, errOffline }
func (offlinePool) Close()                                             {}
