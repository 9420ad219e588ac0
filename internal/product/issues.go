package product

import (
	"fmt"
	"slices"
)

// Severity tags an issue as fatal to the run or advisory.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is a single message attributed to the logical path it was found on.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Issues accumulates the errors and warnings of one composition node.
// It is never shared between nodes; parents collect their children's
// issues only when a flattened view is requested.
type Issues struct {
	Errors   []string
	Warnings []string
}

func (i *Issues) Errorf(format string, args ...any) {
	i.Errors = append(i.Errors, fmt.Sprintf(format, args...))
}

func (i *Issues) Warnf(format string, args ...any) {
	i.Warnings = append(i.Warnings, fmt.Sprintf(format, args...))
}

// Merge appends the messages of other.
func (i *Issues) Merge(other Issues) {
	i.Errors = append(i.Errors, other.Errors...)
	i.Warnings = append(i.Warnings, other.Warnings...)
}

func (i *Issues) Empty() bool {
	return len(i.Errors) == 0 && len(i.Warnings) == 0
}

// List returns the messages as issues attributed to path, errors first.
func (i *Issues) List(path string) []Issue {
	issues := make([]Issue, 0, len(i.Errors)+len(i.Warnings))
	for _, msg := range i.Errors {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: msg})
	}
	for _, msg := range i.Warnings {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: msg})
	}
	return issues
}

// Filter returns the issues with the given severity.
func Filter(issues []Issue, severity Severity) []Issue {
	return slices.DeleteFunc(slices.Clone(issues), func(i Issue) bool {
		return i.Severity != severity
	})
}

// GroupByPath groups messages by logical path, keeping first-seen path order.
func GroupByPath(issues []Issue) (paths []string, messages map[string][]string) {
	messages = make(map[string][]string)
	for _, i := range issues {
		if _, ok := messages[i.Path]; !ok {
			paths = append(paths, i.Path)
		}
		messages[i.Path] = append(messages[i.Path], i.Message)
	}
	return paths, messages
}
