package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"ecotrack/internal/auth"
	"ecotrack/internal/voice"
)

func newVoiceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "voice",
		Short: "Log activities from typed voice commands, one per line",
		Long: `Reads one spoken command per line from standard input, for example
"I drove 15 kilometers" or "I had a vegetarian meal", and logs every
command the assistant understands. Stops at end of input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rec := voice.NewLineRecognizer(cmd.InOrStdin())
			session := voice.NewSession(rec,
				voice.NewWriterSynthesizer(cmd.OutOrStdout(), "assistant> "),
				voice.WithRecorder(svc.VoiceRecorder(auth.LocalUser)),
				voice.WithLogger(a.logger),
				voice.WithNotifier(voice.NotifierFunc(func(_ context.Context, n voice.Notice) {
					printf(cmd, "[%s] %s\n", n.Title, n.Description)
				})))

			if f, ok := cmd.InOrStdin().(*os.File); ok && f == os.Stdin {
				printf(cmd, "Listening. Type a command and press enter, Ctrl-D to finish.\n")
			}
			for !rec.Exhausted() {
				if err := session.Toggle(ctx); err != nil {
					return err
				}
				if err := session.Wait(ctx); err != nil {
					session.Stop()
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
			}
			return nil
		},
	}
}
