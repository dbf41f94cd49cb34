package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/enigmatch/enigmatch/internal/cache"
	"github.com/enigmatch/enigmatch/internal/events"
)

func newEventsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the match event stream",
	}

	var group string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Consume match.created events and print them as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.RedisEnabled() {
				return errors.New("REDIS_URL is required")
			}
			if group == "" {
				group = cfg.MatchEventsGroup
			}
			logger := root.logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := cache.New(ctx, cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer c.Close()

			consumer := events.NewConsumer(c.Client(), group, printEvents(cmd.OutOrStdout()), logger)
			return consumer.Run(ctx)
		},
	}
	tail.Flags().StringVar(&group, "group", "", "consumer group (defaults to MATCH_EVENTS_GROUP)")

	cmd.AddCommand(tail)
	return cmd
}

func printEvents(w io.Writer) events.Handler {
	enc := json.NewEncoder(w)
	return func(_ context.Context, batch []events.MatchCreated) error {
		for _, e := range batch {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}
}
