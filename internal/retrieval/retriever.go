package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/bardtran/internal/chunker"
	"github.com/valpere/bardtran/internal/quote"
)

const (
	DefaultTopK         = 5
	DefaultExtendedTopK = 15

	defaultConcurrency = 4
)

// plannedQuery is one gateway call and the levels whose results it feeds.
type plannedQuery struct {
	text   string
	levels []quote.Level
}

// Retriever expands a modern line into gateway queries, runs them and merges
// the results per level in a deterministic order.
type Retriever struct {
	gw          Gateway
	concurrency int
	logger      *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithConcurrency caps the number of in-flight gateway calls.
func WithConcurrency(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Retriever over gw.
func New(gw Gateway, opts ...Option) *Retriever {
	r := &Retriever{gw: gw, concurrency: defaultConcurrency, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search runs the standard plan: the whole line against every level, its
// phrase chunks against the phrase level and its fragment windows against
// the fragment level.
func (r *Retriever) Search(ctx context.Context, modernLine string, topK int) (quote.Candidates, error) {
	return r.run(ctx, standardPlan(modernLine), topK)
}

// HybridSearch runs the standard plan plus one query per extracted keyword
// against every level.
func (r *Retriever) HybridSearch(ctx context.Context, modernLine string, topK int) (quote.Candidates, error) {
	plan := standardPlan(modernLine)
	for _, kw := range Keywords(modernLine) {
		plan = append(plan, plannedQuery{text: kw, levels: quote.Levels})
	}
	return r.run(ctx, plan, topK)
}

// Retrieve dispatches on mode.
func (r *Retriever) Retrieve(ctx context.Context, modernLine string, mode quote.SearchMode, topK int) (quote.Candidates, error) {
	if mode == quote.SearchHybrid {
		return r.HybridSearch(ctx, modernLine, topK)
	}
	return r.Search(ctx, modernLine, topK)
}

func standardPlan(line string) []plannedQuery {
	plan := []plannedQuery{{text: line, levels: quote.Levels}}
	seen := map[string]bool{line: true}
	for _, p := range chunker.Phrases(line) {
		if !seen[p] {
			seen[p] = true
			plan = append(plan, plannedQuery{text: p, levels: []quote.Level{quote.LevelPhrases}})
		}
	}
	for _, f := range chunker.Fragments(line, chunker.DefaultFragmentWords) {
		if !seen[f] {
			seen[f] = true
			plan = append(plan, plannedQuery{text: f, levels: []quote.Level{quote.LevelFragments}})
		}
	}
	return plan
}

// run fans the plan out to the gateway. A failing query is logged and
// skipped; only when every query fails is the error returned.
func (r *Retriever) run(ctx context.Context, plan []plannedQuery, topK int) (quote.Candidates, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	results := make([]quote.Candidates, len(plan))
	errs := make([]error, len(plan))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, q := range plan {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			cands, err := r.gw.Search(gctx, q.text, q.levels, topK)
			if err != nil {
				r.logger.Warn("retrieval query failed", zap.String("query", q.text), zap.Error(err))
				errs[i] = err
				return nil
			}
			results[i] = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(plan) {
		err := errors.Join(errs...)
		if !errors.Is(err, ErrGateway) {
			err = fmt.Errorf("%w: %v", ErrGateway, err)
		}
		return nil, err
	}

	merged := merge(plan, results)
	r.logger.Debug("retrieval complete",
		zap.Int("queries", len(plan)),
		zap.Int("failed", failed),
		zap.Int("candidates", merged.Total()),
	)
	return merged, nil
}

type spanKey struct {
	key   string
	label string
}

// merge concatenates results in plan order, keeping each span once at its
// first position with the lowest score seen. Ranks are reassigned to the
// merged order.
func merge(plan []plannedQuery, results []quote.Candidates) quote.Candidates {
	out := quote.Candidates{}
	for _, level := range quote.Levels {
		index := map[spanKey]int{}
		var list []quote.CandidateQuote
		for i, q := range plan {
			if !wants(q.levels, level) || results[i] == nil {
				continue
			}
			for _, c := range results[i][level] {
				if c.Malformed {
					list = append(list, c)
					continue
				}
				k := spanKey{key: c.Reference.Key(), label: c.Reference.WordIndex.Label()}
				if at, ok := index[k]; ok {
					if c.Score < list[at].Score {
						list[at].Score = c.Score
					}
					continue
				}
				index[k] = len(list)
				list = append(list, c)
			}
		}
		for i := range list {
			list[i].Rank = i
		}
		if len(list) > 0 {
			out[level] = list
		}
	}
	return out
}

func wants(levels []quote.Level, l quote.Level) bool {
	for _, x := range levels {
		if x == l {
			return true
		}
	}
	return false
}
