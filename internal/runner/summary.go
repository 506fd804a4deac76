package runner

import (
	"github.com/infracollect/epubfold/internal/engine"
)

// Status summarizes a batch run.
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusPlanned  Status = "planned"
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

// Plan is a conversion a dry run would have performed.
type Plan struct {
	Source      string
	Destination string
}

// Outcome is what happened to a single folder.
type Outcome struct {
	engine.Result

	// Published is set once the archive reached the configured sink.
	Published  bool
	PublishErr error

	// Removed is set once the source folder was deleted.
	Removed   bool
	RemoveErr error
}

// OK reports whether the folder was converted and, if required, published.
// A failed removal of the original folder does not make an outcome fail.
func (o Outcome) OK() bool {
	return o.Result.OK() && o.PublishErr == nil
}

type Summary struct {
	SourceDir string
	OutputDir string
	DryRun    bool

	Total     int
	Succeeded int
	Failed    int

	Outcomes []Outcome
	Planned  []Plan
}

func (s Summary) Status() Status {
	switch {
	case s.Total == 0:
		return StatusEmpty
	case s.DryRun:
		return StatusPlanned
	case s.Failed == 0:
		return StatusComplete
	case s.Succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
