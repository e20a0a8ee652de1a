/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/newdaybreak/careers/config"
	"github.com/newdaybreak/careers/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "careers",
	Short: "Caregiver careers backend",
	Long: `Backend for the caregiver careers site: applicant intake, admin review
with applicant email notifications, and application exports.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func loadRuntime() (config.Config, *logrus.Logger) {
	cfg := config.LoadConfig()
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
}
