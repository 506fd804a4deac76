package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	v1 "github.com/infracollect/epubfold/apis/v1"
	"github.com/infracollect/epubfold/internal/engine"
	"github.com/infracollect/epubfold/internal/engine/archivers"
	"github.com/infracollect/epubfold/internal/engine/sinks"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultOutputDir is created inside the source directory when no output directory is set.
	DefaultOutputDir = "converted"

	defaultConcurrency = 1
)

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// ParseConvertJob parses a YAML or JSON job file and validates it.
func ParseConvertJob(data []byte) (v1.ConvertJob, error) {
	var job v1.ConvertJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.ConvertJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := ValidateJob(job); err != nil {
		return v1.ConvertJob{}, err
	}

	return job, nil
}

// ValidateJob checks a job against the constraints declared on the v1 types.
func ValidateJob(job v1.ConvertJob) error {
	if err := defaultValidator.Struct(job); err != nil {
		return fmt.Errorf("failed to validate job: %w", err)
	}
	return nil
}

type Runner struct {
	logger      *zap.Logger
	job         v1.ConvertJob
	fs          afero.Fs
	converter   *engine.Converter
	sink        engine.Sink
	concurrency int
}

type Option func(*Runner)

// WithFs replaces the OS filesystem, e.g. with an in-memory one in tests.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithSink publishes converted archives to sink instead of the one configured by the job.
func WithSink(sink engine.Sink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

func New(ctx context.Context, logger *zap.Logger, job v1.ConvertJob, opts ...Option) (*Runner, error) {
	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name))

	r := &Runner{
		logger:      logger,
		job:         job,
		fs:          afero.NewOsFs(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}

	if job.Spec.Concurrency > 0 {
		r.concurrency = job.Spec.Concurrency
	}

	level := archivers.DefaultLevel
	if job.Spec.Compression != nil && job.Spec.Compression.Level != nil {
		level = *job.Spec.Compression.Level
	}
	factory, err := archivers.NewZipFactory(level)
	if err != nil {
		return nil, fmt.Errorf("failed to build archiver: %w", err)
	}
	r.converter = engine.NewConverter(logger.Named("converter"), r.fs, factory)

	if r.sink == nil && job.Spec.Output.S3 != nil && !job.Spec.DryRun {
		sink, err := buildS3Sink(ctx, job.Spec.Output.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to build sink: %w", err)
		}
		r.sink = sink
	}

	return r, nil
}

func buildS3Sink(ctx context.Context, spec *v1.S3Spec) (engine.Sink, error) {
	sink, err := sinks.NewS3Sink(ctx, sinks.S3Config{
		Bucket:          spec.Bucket,
		Region:          spec.Region,
		Endpoint:        spec.Endpoint,
		Prefix:          spec.Prefix,
		AccessKeyID:     spec.AccessKeyID,
		SecretAccessKey: spec.SecretAccessKey,
		ForcePathStyle:  spec.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// OutputDir returns the directory converted archives are written to.
func (r *Runner) OutputDir() string {
	dir := r.job.Spec.Output.Directory
	if dir == "" {
		dir = DefaultOutputDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(r.job.Spec.Source.Directory, dir)
}

// Run converts every candidate folder of the source directory. A failing
// folder never stops the others; per-folder failures are reported in the
// Summary. The returned error is reserved for problems that prevent the batch
// from starting.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sourceDir := r.job.Spec.Source.Directory
	outputDir := r.OutputDir()

	summary := Summary{
		SourceDir: sourceDir,
		OutputDir: outputDir,
		DryRun:    r.job.Spec.DryRun,
	}

	info, err := r.fs.Stat(sourceDir)
	if err != nil {
		return summary, fmt.Errorf("directory %s does not exist: %w", sourceDir, err)
	}
	if !info.IsDir() {
		return summary, fmt.Errorf("%s is not a directory", sourceDir)
	}

	candidates, err := Discover(r.fs, sourceDir, r.job.Spec.Source.Suffix, outputDir)
	if err != nil {
		return summary, fmt.Errorf("failed to discover folders: %w", err)
	}
	summary.Total = len(candidates)

	if len(candidates) == 0 {
		r.logger.Info("no folders to convert", zap.String("directory", sourceDir))
		return summary, nil
	}

	r.logger.Info("found folders to convert",
		zap.Int("count", len(candidates)),
		zap.String("output_dir", outputDir),
		zap.Bool("dry_run", summary.DryRun),
	)

	if summary.DryRun {
		summary.Planned = lo.Map(candidates, func(source string, _ int) Plan {
			return Plan{Source: source, Destination: r.destination(outputDir, source)}
		})
		return summary, nil
	}

	if err := r.fs.MkdirAll(outputDir, 0755); err != nil {
		return summary, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	outcomes := make([]Outcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, source := range candidates {
		g.Go(func() error {
			outcomes[i] = r.process(ctx, source, r.destination(outputDir, source))
			return nil
		})
	}
	// Workers never return an error; per-folder failures are recorded in outcomes.
	_ = g.Wait()

	summary.Outcomes = outcomes
	summary.Succeeded = lo.CountBy(outcomes, func(o Outcome) bool { return o.OK() })
	summary.Failed = summary.Total - summary.Succeeded

	if r.sink != nil {
		if err := r.sink.Close(ctx); err != nil {
			r.logger.Error("failed to close sink", zap.String("sink", r.sink.Name()), zap.Error(err))
		}
	}

	r.logger.Info("conversion finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.String("status", string(summary.Status())),
	)

	return summary, nil
}

func (r *Runner) destination(outputDir, source string) string {
	return filepath.Join(outputDir, filepath.Base(source))
}

func (r *Runner) process(ctx context.Context, source, destination string) Outcome {
	name := filepath.Base(source)
	logger := r.logger.With(zap.String("folder", name))
	logger.Info("processing folder")

	outcome := Outcome{Result: r.converter.Convert(ctx, source, destination)}
	if !outcome.Result.OK() {
		logger.Error("failed to convert folder",
			zap.String("kind", string(outcome.Kind())),
			zap.Error(outcome.Err),
		)
		return outcome
	}

	logger.Info("converted folder",
		zap.Int("entries", outcome.Entries),
		zap.String("destination", destination),
	)

	if r.sink != nil {
		if err := r.publish(ctx, destination, name); err != nil {
			logger.Error("failed to publish archive", zap.String("sink", r.sink.Name()), zap.Error(err))
			outcome.PublishErr = err
			return outcome
		}
		outcome.Published = true
		logger.Info("published archive", zap.String("sink", r.sink.Name()))
	}

	if r.job.Spec.RemoveOriginal {
		if err := r.fs.RemoveAll(source); err != nil {
			logger.Warn("failed to remove original folder", zap.Error(err))
			outcome.RemoveErr = fmt.Errorf("failed to remove %s: %w", source, err)
			return outcome
		}
		outcome.Removed = true
		logger.Info("removed original folder")
	}

	return outcome
}

func (r *Runner) publish(ctx context.Context, archivePath, name string) (err error) {
	f, err := r.fs.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", archivePath, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return r.sink.Write(ctx, name, f)
}
