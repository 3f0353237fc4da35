// Package batch runs multiple independent Transformer instances
// concurrently, one per input file. spec.md §5 states a transformer
// instance's scratch state is scoped to a single Transform call and that
// "multiple transformer instances may run independently" -- this package
// is the CLI-facing exploitation of that allowance, grounded on
// golang.org/x/sync/errgroup the way golang-tools itself fans out
// concurrent package loads.
package batch

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/internal/lower"
)

// Result is one input file's outcome.
type Result struct {
	Path        string
	File        *cast.File
	Diagnostics []lower.Diagnostic
	Err         error
}

// Run lowers each path in paths concurrently, each through its own
// lower.NewTransformer(opts) instance. A per-file error is recorded on
// its Result rather than aborting the batch, since one malformed input
// file should not prevent the rest from lowering (unlike errgroup's
// usual fail-fast idiom, which this package deliberately does not use
// for the per-file errors -- see Run's doc).
func Run(ctx context.Context, paths []string, opts lower.Options) ([]Result, error) {
	results := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = lowerOne(path, opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, xerrors.Errorf("batch: %w", err)
	}
	return results, nil
}

func lowerOne(path string, opts lower.Options) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Err: xerrors.Errorf("batch: read %s: %w", path, err)}
	}
	program, err := ilast.Decode(data)
	if err != nil {
		return Result{Path: path, Err: xerrors.Errorf("batch: decode %s: %w", path, err)}
	}
	t := lower.NewTransformer(opts)
	file, diags, err := t.Transform(program)
	if err != nil {
		return Result{Path: path, Err: xerrors.Errorf("batch: transform %s: %w", path, err)}
	}
	return Result{Path: path, File: file, Diagnostics: diags}
}
