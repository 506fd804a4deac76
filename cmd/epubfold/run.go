package main

import (
	"context"
	"fmt"
	"io"
	"os"

	v1 "github.com/infracollect/epubfold/apis/v1"
	"github.com/infracollect/epubfold/internal/runner"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func newAllowedEnvFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "allowed-env",
		Usage: "Environment variables allowed in job configuration (can be repeated)",
	}
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run a conversion job file",
	Flags: []cli.Flag{
		newAllowedEnvFlag(),
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Show what would be done without creating files",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file to run (- for stdin)",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		jobFilename := command.StringArg("job")
		if jobFilename == "" {
			return fmt.Errorf("no job file provided")
		}

		job, err := loadJob(jobFilename, command.StringSlice("allowed-env"))
		if err != nil {
			return err
		}

		if command.Bool("dry-run") {
			job.Spec.DryRun = true
		}

		directory, err := resolveDirectory(job.Spec.Source.Directory)
		if err != nil {
			return err
		}
		job.Spec.Source.Directory = directory

		logger.Debug("running job", zap.String("job_filename", jobFilename), zap.String("job_name", job.Metadata.Name))

		return execute(ctx, job)
	},
}

// loadJob reads, parses, expands and validates a job file.
func loadJob(filename string, allowedEnv []string) (v1.ConvertJob, error) {
	data, err := readJobFile(filename)
	if err != nil {
		return v1.ConvertJob{}, fmt.Errorf("failed to read job file '%s': %w", filename, err)
	}

	job, err := runner.ParseConvertJob(data)
	if err != nil {
		return v1.ConvertJob{}, formatValidationError(err)
	}

	variables, err := runner.BuildVariables(job, allowedEnv)
	if err != nil {
		return v1.ConvertJob{}, fmt.Errorf("failed to build variables: %w", err)
	}

	if err := runner.ExpandTemplates(&job, variables); err != nil {
		return v1.ConvertJob{}, fmt.Errorf("failed to expand templates: %w", err)
	}

	// Expanded values may no longer satisfy the declared constraints.
	if err := runner.ValidateJob(job); err != nil {
		return v1.ConvertJob{}, formatValidationError(err)
	}

	return job, nil
}

func readJobFile(filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filename)
}
