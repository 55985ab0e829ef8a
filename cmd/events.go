/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clikanban/kanban/config"
	"github.com/clikanban/kanban/internal/events"
	"github.com/clikanban/kanban/internal/mq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print domain events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("no message queue configured, set MQ_BACKEND")
		}
		defer queue.Close()

		out := cmd.OutOrStdout()
		log.WithFields(log.Fields{"backend": cfg.MQ.Backend, "topic": cfg.MQ.Topic}).Info("tailing events")
		err = queue.Subscribe(ctx, cfg.MQ.Topic, func(_ context.Context, msg mq.Message) error {
			event, err := events.Decode(msg)
			if err != nil {
				log.WithError(err).WithField("message_id", msg.ID).Warn("skip undecodable message")
				return nil
			}
			fmt.Fprintf(out, "%s  %-20s actor=%s  %s\n", event.OccurredAt.Format(time.RFC3339), event.Type, event.ActorID, event.Data)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
