// Package validator is the authoritative provenance check: an assembled line
// is accepted only when it equals, after normalization, the ground-truth
// texts of its references concatenated in the order they were claimed.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/bardtran/internal/quote"
	"github.com/valpere/bardtran/internal/textnorm"
)

var (
	// ErrUnresolvedReference means a locator has no ground-truth entry.
	ErrUnresolvedReference = errors.New("reference does not resolve in ground truth")
	// ErrMismatch means the text differs from the referenced spans.
	ErrMismatch = errors.New("assembled text does not match referenced spans")
	// ErrNoReferences means nothing was offered as provenance.
	ErrNoReferences = errors.New("no references to validate against")
)

// GroundTruth resolves a full locator to its literal source text.
type GroundTruth interface {
	Lookup(ref quote.Reference) (string, error)
}

// Validator checks assembled text against the ground-truth corpus. It trusts
// only locators, never text echoed back by the generative model.
type Validator struct {
	truth GroundTruth
}

// New creates a Validator backed by truth.
func New(truth GroundTruth) *Validator {
	return &Validator{truth: truth}
}

// Validate returns true when the normalized assembled text equals the
// normalized ground-truth texts of refs joined by spaces, in the order given.
// No permutation is searched. A false result always comes with an error
// naming the cause.
func (v *Validator) Validate(assembledText string, refs []quote.Reference) (bool, error) {
	if len(refs) == 0 {
		return false, ErrNoReferences
	}

	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		text, err := v.truth.Lookup(ref)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %v", ErrUnresolvedReference, ref, err)
		}
		parts = append(parts, text)
	}

	want := textnorm.Normalize(strings.Join(parts, " "))
	got := textnorm.Normalize(assembledText)
	if got == "" || got != want {
		return false, fmt.Errorf("%w: got %q, want %q", ErrMismatch, got, want)
	}
	return true, nil
}
