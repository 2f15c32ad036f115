package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docqa/internal/config"
	"docqa/internal/pkg/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about a document",
	Long: `docqa loads a document (PDF, DOCX, PPTX, XLSX, HTML, text or a URL),
indexes it and answers questions about it with a chat model.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/docqa/config.yaml)")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath == "" {
		cfg, _, err := config.LoadDefault()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, nil
}

// newLogger writes to the configured file, or to fallback when none is set.
// An empty fallback discards logs.
func newLogger(cfg *config.AppConfig, fallback string) (*zap.Logger, error) {
	var outputs []string
	switch {
	case cfg.Log.File != "":
		outputs = []string{cfg.Log.File}
	case fallback != "":
		outputs = []string{fallback}
	}
	return logger.New(cfg.Log.Level, cfg.Log.Format, outputs...)
}
