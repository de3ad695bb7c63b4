package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FilePersister keeps one JSON file per translation id under dir:
// {"reference_key": ["context_label", ...]}.
type FilePersister struct {
	dir string
}

// NewFilePersister creates dir if needed.
func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FilePersister{dir: dir}, nil
}

// Path returns the ledger file of translationID.
func (p *FilePersister) Path(translationID string) (string, error) {
	if !validID.MatchString(translationID) {
		return "", fmt.Errorf("invalid translation id %q", translationID)
	}
	return filepath.Join(p.dir, translationID+".json"), nil
}

func (p *FilePersister) LoadLedger(ctx context.Context, translationID string) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := p.Path(translationID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	entries := map[string][]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", path, err)
	}
	return entries, nil
}

// SaveLedger writes through a temp file and rename so a crash never leaves
// a truncated ledger behind.
func (p *FilePersister) SaveLedger(ctx context.Context, translationID string, entries map[string][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := p.Path(translationID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(p.dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}

// Delete removes the ledger file of translationID. Missing files are ignored.
func (p *FilePersister) Delete(translationID string) error {
	path, err := p.Path(translationID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the translation ids that have a ledger file.
func (p *FilePersister) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		ids = append(ids, base[:len(base)-len(".json")])
	}
	return ids, nil
}
