package mapping

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rowmap/rowmap/internal/logging"
	"github.com/rowmap/rowmap/pkg/schema"
)

// FieldMapping binds a target field name to the rule producing its value.
type FieldMapping struct {
	TargetField string
	Rule        Rule
}

// MappingSet is a configured set of field mappings applied row by row.
// It is immutable during evaluation and safe to share across row goroutines.
type MappingSet struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name,omitempty"`
	Fields []FieldMapping `json:"fields"`
}

// Columns returns the output column order: the configured field-mapping
// order, minus fields whose rule skips output.
func (s *MappingSet) Columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for _, fm := range s.Fields {
		if skips(fm.Rule) {
			continue
		}
		cols = append(cols, fm.TargetField)
	}
	return cols
}

// ApplyRow evaluates every field mapping against one row. Evaluation
// failures land inside the per-field results; configuration errors stop only
// the broken field and are joined into the returned error, so hosts can
// report which rule is misconfigured while the other fields still produce.
func (s *MappingSet) ApplyRow(ctx context.Context, row schema.Row) (map[string]schema.TransformationResult, error) {
	out := make(map[string]schema.TransformationResult, len(s.Fields))
	var errs []error

	for _, fm := range s.Fields {
		if fm.Rule == nil {
			errs = append(errs, schema.NewError(schema.ErrCodeConfiguration, "field mapping has no rule").WithField(fm.TargetField))
			continue
		}
		if skips(fm.Rule) {
			continue
		}

		fieldCtx := logging.WithTargetField(ctx, fm.TargetField)
		res, err := fm.Rule.ApplyRow(fieldCtx, row)
		if err != nil {
			var mapErr *schema.MappingError
			if errors.As(err, &mapErr) && mapErr.Field == "" {
				mapErr.Field = fm.TargetField
			}
			errs = append(errs, err)
			continue
		}
		out[fm.TargetField] = res
	}

	return out, errors.Join(errs...)
}

// TableOption tunes a table-wide sweep.
type TableOption func(*tableConfig)

type tableConfig struct {
	workers int
	logger  *slog.Logger
}

// WithWorkers bounds the number of rows evaluated concurrently. Defaults to
// the number of CPUs.
func WithWorkers(n int) TableOption {
	return func(c *tableConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger used for per-cell failure reporting during the
// sweep.
func WithLogger(logger *slog.Logger) TableOption {
	return func(c *tableConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ApplyTable evaluates the mapping set over every row, producing one output
// row per input row. Rows are independent given the configuration, so they
// are evaluated in parallel; cancellation takes effect between rows. A
// configuration error stops only the broken field: every healthy cell of
// every row is still produced alongside the joined errors, with each broken
// field reported once rather than once per row. Per-cell evaluation failures
// travel inside the results and never error.
func (s *MappingSet) ApplyTable(ctx context.Context, rows []schema.Row, opts ...TableOption) ([]map[string]schema.TransformationResult, error) {
	cfg := tableConfig{workers: runtime.NumCPU(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if s.ID != "" {
		ctx = logging.WithMappingID(ctx, s.ID)
	}

	out := make([]map[string]schema.TransformationResult, len(rows))
	var sweep sweepErrors

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)

	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rowCtx := logging.WithRowIndex(gctx, i)
			results, err := s.ApplyRow(rowCtx, row)
			if err != nil {
				sweep.record(err)
			}

			for field, res := range results {
				if res.Failed() {
					logging.LogWith(rowCtx, cfg.logger).Debug("cell evaluation failed",
						slog.String("target_field", field),
						slog.String("error", res.ErrorMessage()))
				}
			}

			out[i] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, sweep.join()
}

// sweepErrors accumulates the configuration errors of a table sweep. The same
// misconfigured field fails identically on every row, so errors carrying a
// field name are kept once.
type sweepErrors struct {
	mu   sync.Mutex
	seen map[string]struct{}
	errs []error
}

func (s *sweepErrors) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, e := range unjoin(err) {
		var mapErr *schema.MappingError
		if errors.As(e, &mapErr) && mapErr.Field != "" {
			if _, ok := s.seen[mapErr.Field]; ok {
				continue
			}
			s.seen[mapErr.Field] = struct{}{}
		}
		s.errs = append(s.errs, e)
	}
}

func (s *sweepErrors) join() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

func unjoin(err error) []error {
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		return u.Unwrap()
	}
	return []error{err}
}

func skips(r Rule) bool {
	s, ok := r.(Skipper)
	return ok && s.SkipOutput()
}
