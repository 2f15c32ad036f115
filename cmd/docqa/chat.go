package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"

	"docqa/internal/builder"
	"docqa/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [file|url]",
	Short: "Chat about a document in the terminal",
	Long: `Opens the interactive chat. The optional argument is loaded on start;
use :load <file|url> to switch documents, :sources to inspect retrieved
chunks and :q to quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, "")
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

	m := tui.New(ctx, session, cfg.Server.RequestTimeout())
	if len(args) == 1 {
		m = m.Load(args[0])
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
