package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/infracollect/epubfold/apis/v1"
	"github.com/infracollect/epubfold/internal/engine/archivers"
	"github.com/infracollect/epubfold/internal/runner"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var convertCommand = &cli.Command{
	Name:  "convert",
	Usage: "Convert every folder ending in .epub found in a directory",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Value:   runner.DefaultOutputDir,
			Usage:   "Output directory, relative to the source directory unless absolute",
		},
		&cli.BoolFlag{
			Name:  "remove-original",
			Usage: "Remove original folders after successful conversion (WARNING: deletes source folders)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Show what would be done without creating files",
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"j"},
			Value:   1,
			Usage:   "Number of folders converted in parallel",
		},
		&cli.IntFlag{
			Name:  "compression-level",
			Value: archivers.DefaultLevel,
			Usage: "Deflate level from -1 (default) to 9 (best)",
		},
		&cli.StringFlag{
			Name:  "suffix",
			Value: runner.DefaultSuffix,
			Usage: "Name ending that marks folders to convert",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "directory",
			UsageText: "Directory containing the .epub folders (e.g. ~/books)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		directory := command.StringArg("directory")
		if directory == "" {
			return fmt.Errorf("no directory provided")
		}

		directory, err := resolveDirectory(directory)
		if err != nil {
			return err
		}

		level := command.Int("compression-level")
		job := v1.ConvertJob{
			Kind:     v1.ConvertJobKind,
			Metadata: v1.Metadata{Name: filepath.Base(directory)},
			Spec: v1.ConvertJobSpec{
				Source: v1.SourceSpec{
					Directory: directory,
					Suffix:    command.String("suffix"),
				},
				Output: v1.OutputSpec{
					Directory: command.String("output-dir"),
				},
				RemoveOriginal: command.Bool("remove-original"),
				DryRun:         command.Bool("dry-run"),
				Concurrency:    command.Int("concurrency"),
				Compression:    &v1.CompressionSpec{Level: &level},
			},
		}

		if err := runner.ValidateJob(job); err != nil {
			return formatValidationError(err)
		}

		return execute(ctx, job)
	},
}

// execute runs a validated job and prints its report. Any failed folder makes
// the command exit non-zero once every folder has been processed.
func execute(ctx context.Context, job v1.ConvertJob) error {
	logger := getLogger(ctx)

	r, err := runner.New(ctx, logger.Named("runner"), job)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	summary, err := r.Run(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	printReport(os.Stdout, summary, job.Spec.RemoveOriginal, isInteractive(ctx))

	if summary.Failed > 0 {
		logger.Debug("conversion incomplete", zap.String("status", string(summary.Status())))
		return cli.Exit(fmt.Sprintf("%d of %d folder(s) failed to convert", summary.Failed, summary.Total), 1)
	}

	return nil
}

// resolveDirectory expands a leading ~ and makes the path absolute.
func resolveDirectory(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}
