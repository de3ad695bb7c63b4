// Package assembler asks the generative model to compose a line from the
// offered quotations and retries with escalating prompts until the reply is
// plausible or the retry budget runs out.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/bardtran/internal/generator"
	"github.com/valpere/bardtran/internal/quote"
)

// DefaultMaxRetries is the retry budget used when the caller passes a
// negative value.
const DefaultMaxRetries = 2

var (
	// ErrExhausted is wrapped by *ExhaustedError once every attempt failed.
	ErrExhausted = errors.New("assembly retries exhausted")
	// ErrResponseInvalid marks a reply that could not be decoded.
	ErrResponseInvalid = errors.New("invalid model response")
	// ErrImplausible marks a decoded reply that failed the local check.
	ErrImplausible = errors.New("assembled text does not match claimed quotations")
	// ErrNoEntries is returned when there is nothing to offer the model.
	ErrNoEntries = errors.New("no prompt entries to assemble from")
)

// Attempt records one round trip for diagnostics.
type Attempt struct {
	Number  int
	Tier    string
	Raw     string
	Text    string
	TempIDs []string
	Reason  string
}

// ExhaustedError carries every failed attempt of one Assemble call.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrExhausted.Error()
	}
	return fmt.Sprintf("%s after %d attempts: %s", ErrExhausted, len(e.Attempts), e.Last().Reason)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}

// Last returns the final attempt, or a zero Attempt when none was made.
func (e *ExhaustedError) Last() Attempt {
	if len(e.Attempts) == 0 {
		return Attempt{}
	}
	return e.Attempts[len(e.Attempts)-1]
}

// phase is a state of the per-call assembly machine.
type phase int

const (
	phaseBuild phase = iota
	phaseInvoke
	phaseParse
	phaseCheck
	phaseReject
)

// Assembler turns a prompt structure into a plausible AssembledResult.
type Assembler struct {
	gen    generator.Generator
	logger *zap.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Assembler backed by gen.
func New(gen generator.Generator, opts ...Option) *Assembler {
	a := &Assembler{gen: gen, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble makes at most maxRetries+1 attempts. Parse failures, failed
// plausibility checks and generator errors all consume one attempt. On
// success the returned temp ids are in the order their text appears.
// Exhaustion returns an *ExhaustedError; context cancellation returns the
// context error immediately.
func (a *Assembler) Assemble(ctx context.Context, modernLine string, prompt quote.PromptStructure, offered quote.TempMap, maxRetries int) (*quote.AssembledResult, error) {
	if prompt.Total() == 0 {
		return nil, ErrNoEntries
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	var (
		attempts   []Attempt
		cur        Attempt
		parsed     quote.AssembledResult
		promptText string
		lastReason string
		n          int
	)

	ph := phaseBuild
	for {
		switch ph {
		case phaseBuild:
			t := tierFor(n, maxRetries)
			cur = Attempt{Number: n, Tier: t.String()}
			promptText = buildPrompt(t, modernLine, prompt, lastReason)
			ph = phaseInvoke

		case phaseInvoke:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			raw, err := a.gen.Complete(ctx, promptText)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				cur.Reason = fmt.Sprintf("generator %s: %v", a.gen.Name(), err)
				ph = phaseReject
				continue
			}
			cur.Raw = raw
			ph = phaseParse

		case phaseParse:
			res, err := ParseResponse(cur.Raw)
			if err != nil {
				cur.Reason = err.Error()
				ph = phaseReject
				continue
			}
			parsed = res
			cur.Text = res.Text
			cur.TempIDs = res.TempIDs
			ph = phaseCheck

		case phaseCheck:
			ordered, err := MiniValidate(parsed.Text, parsed.TempIDs, offered)
			if err != nil {
				cur.Reason = err.Error()
				ph = phaseReject
				continue
			}
			a.logger.Debug("assembly accepted",
				zap.Int("attempt", n),
				zap.String("tier", cur.Tier),
				zap.Strings("temp_ids", ordered),
			)
			return &quote.AssembledResult{Text: strings.TrimSpace(parsed.Text), TempIDs: ordered}, nil

		case phaseReject:
			attempts = append(attempts, cur)
			lastReason = cur.Reason
			a.logger.Debug("assembly attempt rejected",
				zap.Int("attempt", n),
				zap.String("tier", cur.Tier),
				zap.String("reason", cur.Reason),
			)
			n++
			if n > maxRetries {
				return nil, &ExhaustedError{Attempts: attempts}
			}
			ph = phaseBuild
		}
	}
}
