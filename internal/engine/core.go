package engine

import "context"

type Named interface {
	Name() string
	Kind() string
}

type Closer interface {
	Close(context.Context) error
}

const (
	// ISO8601Basic formats the JOB_DATE_ISO8601 template variable. It has no
	// colons, so expanded values stay valid in file names and object keys.
	ISO8601Basic = "20060102T150405Z"
)
