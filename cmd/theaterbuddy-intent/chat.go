package main

import (
	"github.com/spf13/cobra"

	"github.com/avvvet/theaterbuddy-intent/internal/chat"
)

var plainOutput bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive theater chatbot",
	RunE:  runChat,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "disable colored chat output")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := []chat.Option{chat.WithLogger(log.Named("chat"))}
	if plainOutput {
		opts = append(opts, chat.WithPlainOutput())
	}
	return chat.New(svc.handler, cmd.InOrStdin(), cmd.OutOrStdout(), opts...).Run(ctx)
}
