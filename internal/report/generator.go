package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/consultant-1379/am-package-manager/internal/composition"
	"github.com/consultant-1379/am-package-manager/internal/product"
	"github.com/consultant-1379/am-package-manager/internal/validation"
)

// ErrValidationFailed is returned when the report was written but errors
// were found while generating it.
var ErrValidationFailed = errors.New("product report validation failed")

// Generator produces the product report for a set of archives.
type Generator struct {
	Builder   *composition.Builder
	Validator *validation.Validator
	// Output is the path of the report file.
	Output string
	// Checks are run on the deduplicated inventory in addition to the
	// DefaultChecks.
	Checks []Check
}

// DefaultChecks are run on every inventory.
func DefaultChecks() []Check {
	return []Check{CheckProductNumbers, CheckComplete, CheckUniqueImages}
}

// Result is the outcome of a generation run.
type Result struct {
	Roots     []*composition.Node
	Inventory Inventory
	Issues    []product.Issue
}

// Errors returns the error issues of the run.
func (r *Result) Errors() []product.Issue {
	return product.Filter(r.Issues, product.SeverityError)
}

// Generate builds and validates the composition of every archive, writes the
// report file and then checks the result. The report is written whenever
// the archives could be read, so that it is available for inspection even
// if the run fails. A run with errors returns ErrValidationFailed along with
// the result.
func (g *Generator) Generate(ctx context.Context, archives ...string) (*Result, error) {
	result := &Result{}
	for _, archive := range archives {
		root, err := g.Builder.Build(ctx, archive)
		if err != nil {
			return nil, err
		}
		result.Roots = append(result.Roots, root)
	}

	transportErr := g.Validator.Validate(ctx, result.Roots...)

	result.Inventory = Deduplicate(Flatten(result.Roots...))
	if err := Write(g.Output, result.Inventory); err != nil {
		return result, err
	}
	slog.InfoContext(ctx, "wrote product report", "file", g.Output,
		"packages", len(result.Inventory.Packages), "images", len(result.Inventory.Images))

	result.Issues = composition.Issues(result.Roots...)
	for _, check := range append(DefaultChecks(), g.Checks...) {
		result.Issues = append(result.Issues, check(result.Inventory)...)
	}
	logIssues(ctx, result.Issues)

	if transportErr != nil {
		return result, fmt.Errorf("%w: %w", ErrValidationFailed, transportErr)
	}
	if errs := result.Errors(); len(errs) > 0 {
		return result, fmt.Errorf("%w: %d errors", ErrValidationFailed, len(errs))
	}
	return result, nil
}

// logIssues logs warnings and then errors, one entry per logical path.
func logIssues(ctx context.Context, issues []product.Issue) {
	warnings, errs := product.Filter(issues, product.SeverityWarning), product.Filter(issues, product.SeverityError)

	paths, messages := product.GroupByPath(warnings)
	for _, path := range paths {
		slog.WarnContext(ctx, "warnings while processing product report", "path", path, "warnings", strings.Join(messages[path], "\n"))
	}
	paths, messages = product.GroupByPath(errs)
	for _, path := range paths {
		slog.ErrorContext(ctx, "errors while processing product report", "path", path, "errors", strings.Join(messages[path], "\n"))
	}
}
