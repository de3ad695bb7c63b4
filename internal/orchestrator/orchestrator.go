// Package orchestrator runs the per-line translation state machine:
// retrieval, selection, assembly, validation and ledger update, with the
// extension, hybrid retry and failsafe policies between them.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/valpere/bardtran/internal/quote"
	"github.com/valpere/bardtran/internal/selector"
)

var (
	// ErrLineFailed is wrapped by *LineError when a line cannot be translated.
	ErrLineFailed = errors.New("line translation failed")
	// ErrNoSession is returned when no translation session was started.
	ErrNoSession = errors.New("no translation session started")
)

// LineError carries the diagnostics of a failed line.
type LineError struct {
	Line            string
	LastText        string
	RejectedTempIDs []string
	Reason          string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s: %q: %s", ErrLineFailed, e.Line, e.Reason)
}

func (e *LineError) Unwrap() error {
	return ErrLineFailed
}

// Retriever fetches candidates for a modern line.
type Retriever interface {
	Retrieve(ctx context.Context, modernLine string, mode quote.SearchMode, topK int) (quote.Candidates, error)
}

// Assembler composes a line from offered entries.
type Assembler interface {
	Assemble(ctx context.Context, modernLine string, prompt quote.PromptStructure, offered quote.TempMap, maxRetries int) (*quote.AssembledResult, error)
}

// Validator is the authoritative provenance check.
type Validator interface {
	Validate(assembledText string, refs []quote.Reference) (bool, error)
}

// UsageLedger tracks consumed spans for the active session.
type UsageLedger interface {
	Open(ctx context.Context, translationID string) error
	ID() string
	MarkUsed(key, label string)
	WasUsed(key, label string) bool
	Save(ctx context.Context) error
}

// History records successful translations.
type History interface {
	SaveTranslation(ctx context.Context, sessionID string, result quote.TranslationResult) error
}

// LanguageGuard reports whether input is English. DetectISO names the
// detected language of rejected input.
type LanguageGuard interface {
	IsEnglish(text string) bool
	DetectISO(text string) (string, bool)
}

// Config holds the engine policies.
type Config struct {
	MinOptions   int `mapstructure:"min_options"`
	MaxPerLevel  int `mapstructure:"max_per_level"`
	MaxRetries   int `mapstructure:"max_retries"`
	TopK         int `mapstructure:"top_k"`
	ExtendedTopK int `mapstructure:"extended_top_k"`
}

// DefaultConfig returns the standard engine policies.
func DefaultConfig() Config {
	return Config{
		MinOptions:   3,
		MaxPerLevel:  selector.DefaultMaxPerLevel,
		MaxRetries:   2,
		TopK:         5,
		ExtendedTopK: 15,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinOptions <= 0 {
		c.MinOptions = d.MinOptions
	}
	if c.MaxPerLevel <= 0 {
		c.MaxPerLevel = d.MaxPerLevel
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.ExtendedTopK <= c.TopK {
		c.ExtendedTopK = c.TopK * 3
	}
	return c
}

// Orchestrator ties the engine together for one session at a time. Lines
// are processed one after another; the ledger is mutated only under mu.
type Orchestrator struct {
	retriever Retriever
	assembler Assembler
	validator Validator
	ledger    UsageLedger
	selector  *selector.Selector
	history   History
	guard     LanguageGuard
	config    Config
	logger    *zap.Logger

	mu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHistory records every successful result.
func WithHistory(h History) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// WithLanguageGuard rejects lines the guard does not consider English.
func WithLanguageGuard(g LanguageGuard) Option {
	return func(o *Orchestrator) {
		o.guard = g
	}
}

// New creates an Orchestrator.
func New(r Retriever, a Assembler, v Validator, l UsageLedger, config Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		retriever: r,
		assembler: a,
		validator: v,
		ledger:    l,
		config:    config.withDefaults(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.selector = selector.New(l,
		selector.WithMaxPerLevel(o.config.MaxPerLevel),
		selector.WithLogger(o.logger),
	)
	return o
}

// StartSession binds the ledger to translationID and loads its persisted
// state. Storage errors are returned as-is.
func (o *Orchestrator) StartSession(ctx context.Context, translationID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if strings.TrimSpace(translationID) == "" {
		return fmt.Errorf("translation id is required")
	}
	if err := o.ledger.Open(ctx, translationID); err != nil {
		return fmt.Errorf("failed to start session %s: %w", translationID, err)
	}
	o.logger.Info("session started", zap.String("translation_id", translationID))
	return nil
}

// SessionID returns the active translation id, or "".
func (o *Orchestrator) SessionID() string {
	return o.ledger.ID()
}

// TranslateLine runs the state machine for one modern line. A line that
// cannot be translated returns a *LineError wrapping ErrLineFailed; any other
// error (unreachable gateway, cancellation) is fatal for the caller.
func (o *Orchestrator) TranslateLine(ctx context.Context, modernLine string, useHybrid bool) (*quote.TranslationResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ledger.ID() == "" {
		return nil, ErrNoSession
	}
	return o.translate(ctx, modernLine, useHybrid)
}

// TranslateGroup translates lines in order. Later lines observe the spans
// consumed by earlier ones. Failed lines are skipped; the batch stops only
// on a fatal error, returning what was translated so far.
func (o *Orchestrator) TranslateGroup(ctx context.Context, modernLines []string, useHybrid bool) ([]quote.TranslationResult, error) {
	results := make([]quote.TranslationResult, 0, len(modernLines))
	for _, line := range modernLines {
		res, err := o.TranslateLine(ctx, line, useHybrid)
		if errors.Is(err, ErrLineFailed) {
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}
