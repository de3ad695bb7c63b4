/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/bardtran/internal/assembler"
	"github.com/valpere/bardtran/internal/config"
	"github.com/valpere/bardtran/internal/corpus"
	"github.com/valpere/bardtran/internal/detector"
	"github.com/valpere/bardtran/internal/generator"
	"github.com/valpere/bardtran/internal/ledger"
	"github.com/valpere/bardtran/internal/orchestrator"
	"github.com/valpere/bardtran/internal/retrieval"
	"github.com/valpere/bardtran/internal/store"
	"github.com/valpere/bardtran/internal/validator"
)

// backend is the configured ledger persistence. db is set only for the
// sqlite backend, which also keeps translation history.
type backend struct {
	persister ledger.Persister
	files     *ledger.FilePersister
	db        *store.Store
}

func openBackend(c *config.Config) (*backend, error) {
	switch c.Ledger.Backend {
	case config.LedgerSQLite:
		if err := os.MkdirAll(filepath.Dir(c.Ledger.DB), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := store.New(c.Ledger.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return &backend{persister: db, db: db}, nil
	default:
		fp, err := ledger.NewFilePersister(c.Ledger.Dir)
		if err != nil {
			return nil, err
		}
		return &backend{persister: fp, files: fp}, nil
	}
}

func (b *backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// engine is a fully wired orchestrator with the resources it holds open.
type engine struct {
	orch    *orchestrator.Orchestrator
	backend *backend
}

type engineOptions struct {
	englishOnly bool
	skipHealth  bool
}

// buildEngine loads the corpus and wires retrieval, generation, validation
// and the ledger from cfg. An unreachable retrieval gateway is fatal unless
// the health check is skipped.
func buildEngine(ctx context.Context, c *config.Config, eo engineOptions) (*engine, error) {
	truth, err := corpus.Load(c.Corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	logger.Debug("corpus loaded")

	gen, err := generator.New(ctx, c.Generator)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	gw := retrieval.NewHTTPGateway(c.Retrieval.BaseURL, c.Retrieval.Timeout)
	if !eo.skipHealth {
		if err := gw.Ping(ctx); err != nil {
			return nil, fmt.Errorf("retrieval gateway unreachable: %w", err)
		}
	}

	b, err := openBackend(c)
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if b.db != nil {
		opts = append(opts, orchestrator.WithHistory(b.db))
	}
	if eo.englishOnly {
		opts = append(opts, orchestrator.WithLanguageGuard(detector.New()))
	}

	orch := orchestrator.New(
		retrieval.New(gw, retrieval.WithLogger(logger)),
		assembler.New(gen, assembler.WithLogger(logger)),
		validator.New(truth),
		ledger.New(b.persister),
		c.EngineConfig(),
		opts...,
	)
	return &engine{orch: orch, backend: b}, nil
}

func (e *engine) Close() error {
	return e.backend.Close()
}
