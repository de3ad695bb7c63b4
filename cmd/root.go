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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/valpere/bardtran/internal/config"
)

var version = "0.1.0"

var (
	cfgFile string
	v       = viper.New()
	cfg     *config.Config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "bardtran",
	Short: "Translate modern lines into verbatim Shakespeare",
	Long: `A CLI application that rewrites modern English lines using only
verbatim quotations from a fixed Shakespeare corpus.

Candidate spans come from a retrieval gateway, a generative model assembles
them into a line, and every result is checked against the corpus before it
is returned. Spans used within a session are never offered again.

Use "bardtran translate --help" for translation options.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		zc := zap.NewProductionConfig()
		if cfg.Log.Verbose {
			zc = zap.NewDevelopmentConfig()
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		l, err := zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (YAML)")
	pf.BoolP("verbose", "v", false, "Debug logging")
	pf.String("corpus", "", "Ground-truth corpus file (YAML or JSON)")
	pf.String("gateway-url", "", "Retrieval gateway base URL")
	pf.String("provider", "", "Generator provider: ollama, openrouter, gemini")
	pf.String("model", "", "Generator model")
	pf.String("api-key", "", "Generator API key")
	pf.String("ledger-backend", "", "Ledger backend: file or sqlite")
	pf.String("ledger-dir", "", "Directory for file ledgers")
	pf.String("db", "", "Database path for the sqlite backend")

	for key, flag := range map[string]string{
		"log.verbose":        "verbose",
		"corpus":             "corpus",
		"retrieval.base_url": "gateway-url",
		"generator.provider": "provider",
		"generator.model":    "model",
		"generator.api_key":  "api-key",
		"ledger.backend":     "ledger-backend",
		"ledger.dir":         "ledger-dir",
		"ledger.db":          "db",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}
}
