package content

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/logging"
)

// DefaultConcurrency bounds in-flight lookups per batch.
const DefaultConcurrency = 4

// Resolved is the outcome of looking up one reference.
type Resolved struct {
	Index     int                `json:"index"`
	Reference refparse.Reference `json:"reference"`
	Display   string             `json:"display"`
	Lines     []string           `json:"lines"`
	Error     string             `json:"error,omitempty"`

	Err error `json:"-"`
}

// Batch is the outcome of resolving an ordered reference list.
type Batch struct {
	ID      string     `json:"id"`
	Results []Resolved `json:"results"`
	Failed  int        `json:"failed"`
}

// Resolver looks up references concurrently. A failed lookup yields an
// empty result with its error; it never aborts the rest of the batch.
type Resolver struct {
	provider    Provider
	concurrency int
}

// NewResolver creates a resolver. concurrency <= 0 uses DefaultConcurrency.
func NewResolver(p Provider, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{provider: p, concurrency: concurrency}
}

// Provider returns the provider the resolver looks up against.
func (r *Resolver) Provider() Provider { return r.provider }

// Resolve looks up every reference and returns the results in input order.
func (r *Resolver) Resolve(ctx context.Context, refs []refparse.Reference) *Batch {
	batch := &Batch{ID: uuid.NewString(), Results: make([]Resolved, len(refs))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			batch.Results[i] = r.lookup(gctx, i, ref)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range batch.Results {
		if res.Err != nil {
			batch.Failed++
		}
	}
	return batch
}

// Stream looks up every reference and sends each result as soon as it is
// ready, so results may arrive out of order (see Resolved.Index). The
// channel is closed when all lookups finish or ctx is done.
func (r *Resolver) Stream(ctx context.Context, refs []refparse.Reference) <-chan Resolved {
	out := make(chan Resolved)

	go func() {
		defer close(out)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i, ref := range refs {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res := r.lookup(gctx, i, ref)
				select {
				case out <- res:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return out
}

func (r *Resolver) lookup(ctx context.Context, i int, ref refparse.Reference) Resolved {
	res := Resolved{Index: i, Reference: ref, Display: ref.String(), Lines: []string{}}

	lines, err := r.provider.Lookup(ctx, ref)
	if err != nil {
		logging.ProviderError(ctx, r.provider.Name(), res.Display, err)
		res.Err = err
		res.Error = err.Error()
		return res
	}
	res.Lines = lines
	return res
}
