package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cryptobot-signal/internal/app"
	"cryptobot-signal/internal/config"
	"cryptobot-signal/internal/domain"
	"cryptobot-signal/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "signalctl",
		Short: "Operator tools for the crypto signal pipeline",
		Long: `signalctl runs the same fetch, prompt and generate pipeline as the chat bot
and prints the results to the terminal.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newPairsCmd(cfg))
	rootCmd.AddCommand(newSignalCmd(cfg))
	rootCmd.AddCommand(newPromptCmd(cfg))

	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL for this run")

	return rootCmd
}

func newPairsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pairs",
		Short: "List the monitored instruments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := cfg.Catalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, inst := range catalog.Instruments() {
				fmt.Fprintln(out, inst)
			}
			return nil
		},
	}
}

func newSignalCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "signal [PAIR...]",
		Short: "Generate signals for the given pairs, or every monitored pair",
		Long: `Generate a trading signal for each pair in order. Without arguments every
monitored pair is processed. A failed pair prints its notice and does not stop the rest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			insts, err := parseInstruments(args)
			if err != nil {
				return err
			}
			return withPipeline(cmd, cfg, func(ctx context.Context, p *app.Pipeline) error {
				if len(insts) == 0 {
					insts = p.Catalog.Instruments()
				}
				return printSignals(ctx, cmd.OutOrStdout(), p.Signals, insts)
			})
		},
	}
}

func newPromptCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt PAIR",
		Short: "Print the prompt for a pair without calling the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := domain.ParseInstrument(args[0])
			if err != nil {
				return err
			}
			return withPipeline(cmd, cfg, func(ctx context.Context, p *app.Pipeline) error {
				prompt, err := p.Signals.BuildPrompt(ctx, inst)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prompt)
				return nil
			})
		},
	}
}

// withPipeline sets up logging, tracing and the pipeline for one command run.
func withPipeline(cmd *cobra.Command, cfg *config.Config, fn func(context.Context, *app.Pipeline) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	level := cfg.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	log := newLoggerFunc(level)
	defer func() { _ = log.Sync() }()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	p, err := newPipelineFunc(cfg, tracer, log)
	if err != nil {
		return err
	}
	return fn(ctx, p)
}

type signalRunner interface {
	ProduceSignalsFunc(ctx context.Context, insts []domain.Instrument, deliver func(domain.Outcome))
}

func printSignals(ctx context.Context, out io.Writer, signals signalRunner, insts []domain.Instrument) error {
	failed := 0
	signals.ProduceSignalsFunc(ctx, insts, func(o domain.Outcome) {
		if o.Err != nil {
			failed++
			fmt.Fprintln(out, service.FailureNotice(o.Instrument, o.Err))
			return
		}
		fmt.Fprintln(out, o.Message)
		fmt.Fprintln(out)
	})
	if failed > 0 {
		return fmt.Errorf("%d of %d signals failed", failed, len(insts))
	}
	return nil
}

func parseInstruments(args []string) ([]domain.Instrument, error) {
	insts := make([]domain.Instrument, 0, len(args))
	for _, arg := range args {
		inst, err := domain.ParseInstrument(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}
	return insts, nil
}
