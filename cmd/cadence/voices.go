package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadence/internal/tts"
)

func newVoicesCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices the configured TTS engine offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := tts.NewEngine(cfg.TTS)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, voice := range engine.Voices() {
				if voice == cfg.TTS.Voice {
					fmt.Fprintf(out, "%s (default)\n", voice)
					continue
				}
				fmt.Fprintln(out, voice)
			}
			return nil
		},
	}
}
