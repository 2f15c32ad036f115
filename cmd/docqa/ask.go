package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"

	"docqa/internal/builder"
	"docqa/internal/loader"
)

var (
	askSource      string
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask --source <file|url> [question]",
	Short: "Answer one question about a document",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSource, "source", "s", "", "document file path or URL")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print the retrieved chunks")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askSource == "" {
		return errors.New("--source is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, "stderr")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := ctxzap.ToContext(context.Background(), log)
	sessions, err := builder.NewSessions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	session, err := sessions.New(uuid.NewString())
	if err != nil {
		return err
	}
	defer func() { _ = session.Reset(ctx) }()

	src, err := loader.SourceFor(askSource)
	if err != nil {
		return err
	}
	if _, err := session.Ingest(ctx, src); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	answer, err := session.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)
	if askShowSources {
		for i, r := range answer.Sources {
			fmt.Fprintf(out, "\n[%d] chunk=%d score=%.3f\n%s\n", i+1, r.Chunk.Index, r.Score, r.Chunk.Text)
		}
	}
	return nil
}
