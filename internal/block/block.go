// Package block holds the data model shared by the annotation parser, the
// execution sandbox, the composition engine and the exporter.
package block

import "github.com/org-press/org-press-sub001/internal/annotation"

// ParsedCodeBlock is one fenced code region lifted out of a document.
// Index is 0-based document order and advances for every block, including
// silent ones.
type ParsedCodeBlock struct {
	Language   string
	RawCode    string
	Annotation annotation.Annotation
	Index      int
	Name       string
}

// Context identifies the block a render function or plugin is working on.
type Context struct {
	DocumentPath string
	Index        int
	Name         string
	Language     string
	Params       annotation.Annotation
}

// ErrorKind classifies execution failures.
type ErrorKind string

const (
	ErrorKindUnsupportedLanguage ErrorKind = "unsupported-language"
	ErrorKindEnvironment         ErrorKind = "environment"
	ErrorKindExecution           ErrorKind = "execution"
	ErrorKindSerialization       ErrorKind = "serialization"
)

// ExecutionError is the normalized failure shape of a sandbox run.
type ExecutionError struct {
	Kind    ErrorKind `json:"kind" msgpack:"kind"`
	Message string    `json:"message" msgpack:"message"`
	Stack   string    `json:"stack,omitempty" msgpack:"stack,omitempty"`
}

func (e *ExecutionError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// ExecutionResult is what a sandbox run produces. ExecutionTimeMS is always
// populated, for failures too.
type ExecutionResult struct {
	Output          string          `json:"output" msgpack:"output"`
	Error           *ExecutionError `json:"error,omitempty" msgpack:"error,omitempty"`
	ExecutionTimeMS float64         `json:"executionTimeMs" msgpack:"execution_time_ms"`
}

// Failed reports whether the run produced an error.
func (r ExecutionResult) Failed() bool { return r.Error != nil }
