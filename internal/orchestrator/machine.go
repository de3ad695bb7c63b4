package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/bardtran/internal/assembler"
	"github.com/valpere/bardtran/internal/quote"
	"github.com/valpere/bardtran/internal/selector"
)

type state int

const (
	stateRetrieve state = iota
	stateSelect
	stateAssemble
	stateFailsafe
	stateValidate
	stateMarkUsed
	stateDone
	stateFailed
)

var stateNames = map[state]string{
	stateRetrieve: "retrieve",
	stateSelect:   "select",
	stateAssemble: "assemble",
	stateFailsafe: "failsafe",
	stateValidate: "validate",
	stateMarkUsed: "mark_used",
	stateDone:     "done",
	stateFailed:   "failed",
}

func (s state) String() string {
	return stateNames[s]
}

// lineRun is the mutable state of one pass through the machine.
type lineRun struct {
	line string
	mode quote.SearchMode
	topK int

	extended    bool
	hybridTried bool

	candidates quote.Candidates
	prepared   selector.Prepared
	assembled  *quote.AssembledResult
	refs       []quote.Reference
	degraded   bool

	// best is the lowest-scored filtered line-level candidate seen so far.
	best       *quote.CandidateQuote
	bestTempID string

	lastText     string
	lastRejected []string
	reason       string
}

func (o *Orchestrator) translate(ctx context.Context, modernLine string, useHybrid bool) (*quote.TranslationResult, error) {
	line := strings.TrimSpace(modernLine)
	if line == "" {
		return nil, &LineError{Line: modernLine, Reason: "empty input"}
	}
	if o.guard != nil && !o.guard.IsEnglish(line) {
		reason := "input is not English"
		if code, ok := o.guard.DetectISO(line); ok {
			reason += " (detected " + code + ")"
		}
		return nil, &LineError{Line: line, Reason: reason}
	}

	run := &lineRun{line: line, mode: quote.SearchStandard, topK: o.config.TopK}
	if useHybrid {
		run.mode = quote.SearchHybrid
	}

	st := stateRetrieve
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.logger.Debug("state", zap.String("line", line), zap.Stringer("state", st), zap.String("mode", string(run.mode)))

		switch st {
		case stateRetrieve:
			cands, err := o.retriever.Retrieve(ctx, line, run.mode, run.topK)
			if err != nil {
				return nil, fmt.Errorf("retrieval failed: %w", err)
			}
			run.candidates = cands
			st = stateSelect

		case stateSelect:
			prepared, sufficient := o.selector.Prepare(run.candidates, o.config.MinOptions)
			run.prepared = prepared
			run.noteBest()
			if !sufficient && !run.extended {
				run.extended = true
				run.topK = o.config.ExtendedTopK
				o.logger.Debug("insufficient candidates, extending retrieval",
					zap.Int("entries", prepared.Total()),
					zap.Int("top_k", run.topK),
				)
				st = stateRetrieve
				continue
			}
			st = stateAssemble

		case stateAssemble:
			res, err := o.assembler.Assemble(ctx, line, run.prepared.Prompt, run.prepared.TempMap, o.config.MaxRetries)
			if err == nil {
				run.assembled = res
				run.refs, err = run.resolve(res.TempIDs)
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				run.noteAssemblyFailure(err)
				if !run.hybridTried {
					run.hybridTried = true
					run.mode = quote.SearchHybrid
					run.topK = o.config.TopK
					run.extended = false
					o.logger.Debug("assembly failed, retrying with hybrid search", zap.String("reason", run.reason))
					st = stateRetrieve
					continue
				}
				st = stateFailsafe
				continue
			}
			st = stateValidate

		case stateFailsafe:
			if run.best == nil {
				run.reason = "assembly failed and no line-level candidate is available: " + run.reason
				st = stateFailed
				continue
			}
			run.assembled = &quote.AssembledResult{Text: run.best.Text, TempIDs: []string{run.bestTempID}}
			run.refs = []quote.Reference{run.best.Reference}
			run.degraded = true
			o.logger.Info("using failsafe single quote",
				zap.String("line", line),
				zap.String("reference", run.best.Reference.String()),
			)
			st = stateValidate

		case stateValidate:
			run.lastText = run.assembled.Text
			ok, err := o.validator.Validate(run.assembled.Text, run.refs)
			if !ok {
				run.lastRejected = run.assembled.TempIDs
				run.reason = "validation failed"
				if err != nil {
					run.reason = err.Error()
				}
				st = stateFailed
				continue
			}
			st = stateMarkUsed

		case stateMarkUsed:
			for _, ref := range run.refs {
				o.ledger.MarkUsed(ref.Key(), ref.WordIndex.Label())
			}
			if err := o.ledger.Save(ctx); err != nil {
				o.logger.Warn("failed to save ledger", zap.String("translation_id", o.ledger.ID()), zap.Error(err))
			}
			st = stateDone

		case stateDone:
			result := run.result()
			if o.history != nil {
				if err := o.history.SaveTranslation(ctx, o.ledger.ID(), result); err != nil {
					o.logger.Warn("failed to record translation", zap.Error(err))
				}
			}
			return &result, nil

		case stateFailed:
			o.logger.Warn("line translation failed",
				zap.String("line", line),
				zap.String("last_text", run.lastText),
				zap.Strings("rejected_temp_ids", run.lastRejected),
				zap.String("reason", run.reason),
			)
			return nil, &LineError{
				Line:            line,
				LastText:        run.lastText,
				RejectedTempIDs: run.lastRejected,
				Reason:          run.reason,
			}
		}
	}
}

// noteBest remembers the best filtered line-level entry of the latest
// selection. Earlier passes win ties.
func (r *lineRun) noteBest() {
	entries := r.prepared.Prompt[quote.LevelLine]
	if len(entries) == 0 {
		return
	}
	top := entries[0]
	c, ok := r.prepared.TempMap[top.TempID]
	if !ok {
		return
	}
	if r.best == nil || c.Score < r.best.Score {
		r.best = &c
		r.bestTempID = top.TempID
	}
}

// resolve maps accepted temp ids to their references, rejecting a result
// that uses the same span twice.
func (r *lineRun) resolve(tempIDs []string) ([]quote.Reference, error) {
	refs := make([]quote.Reference, 0, len(tempIDs))
	seen := make(map[string]bool, len(tempIDs))
	for _, id := range tempIDs {
		c, ok := r.prepared.TempMap[id]
		if !ok {
			return nil, fmt.Errorf("temp_id %s was not offered", id)
		}
		k := c.Reference.Key() + "#" + c.Reference.WordIndex.Label()
		if seen[k] {
			return nil, fmt.Errorf("span %s used twice", c.Reference)
		}
		seen[k] = true
		refs = append(refs, c.Reference)
	}
	return refs, nil
}

func (r *lineRun) noteAssemblyFailure(err error) {
	r.reason = err.Error()
	var ex *assembler.ExhaustedError
	if errors.As(err, &ex) {
		last := ex.Last()
		r.lastText = last.Text
		r.lastRejected = last.TempIDs
		r.reason = last.Reason
		return
	}
	if r.assembled != nil {
		r.lastText = r.assembled.Text
		r.lastRejected = r.assembled.TempIDs
		r.assembled = nil
	}
}

func (r *lineRun) result() quote.TranslationResult {
	refs := make([]quote.Reference, len(r.refs))
	copy(refs, r.refs)
	ids := make([]string, len(r.assembled.TempIDs))
	copy(ids, r.assembled.TempIDs)
	return quote.TranslationResult{
		Text:               r.assembled.Text,
		TempIDs:            ids,
		References:         refs,
		OriginalModernLine: r.line,
		Degraded:           r.degraded,
		SearchMode:         r.mode,
	}
}
