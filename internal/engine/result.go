package engine

// Result is the outcome of converting one directory.
type Result struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Entries     int    `json:"entries"`
	Err         error  `json:"-"`
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Kind returns the error kind of a failed result, or an empty kind on success.
func (r Result) Kind() ErrorKind {
	return KindOf(r.Err)
}
