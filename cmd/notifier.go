/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newdaybreak/careers/internal/db"
	"github.com/newdaybreak/careers/internal/mq"
	"github.com/newdaybreak/careers/internal/notify"
	"github.com/newdaybreak/careers/internal/store"
	"github.com/spf13/cobra"
)

// notifierCmd represents the notifier command.
var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume queued applicant notifications and send them",
	Long: `Consumes applicant notifications published by the server's relay and
sends them through the configured mail transport. Requires MQ_BACKEND to be
rabbitmq or pubsub. Usage:

	careers notifier
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadRuntime()
		if cfg.MQ.Backend != mq.BackendRabbitMQ && cfg.MQ.Backend != mq.BackendPubSub {
			return fmt.Errorf("notifier needs MQ_BACKEND rabbitmq or pubsub, got %q", cfg.MQ.Backend)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mailer, err := notify.NewMailer(cfg.Mail, log)
		if err != nil {
			return err
		}

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		queue, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer queue.Close()

		worker := notify.NewWorker(store.NewOutboxRepository(dbConn), mailer, log)
		return worker.Run(ctx, queue, cfg.MQ.NotificationTopic)
	},
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
