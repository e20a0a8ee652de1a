/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/newdaybreak/careers/internal/db"
	"github.com/newdaybreak/careers/internal/services"
	"github.com/newdaybreak/careers/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create initial data",
}

var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create the administrator account if none exists",
	Long: `Creates the administrator account from ADMIN_NAME, ADMIN_EMAIL and
ADMIN_PASSWORD. Does nothing when an administrator already exists, so it is
safe to run on every deploy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadRuntime()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		user, created, err := services.SeedAdmin(cmd.Context(), store.NewUserRepository(dbConn), services.AdminAccount{
			Name:     cfg.Admin.Name,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return err
		}
		if !created {
			log.Info("administrator already exists; nothing to do")
			return nil
		}
		log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("administrator created")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedAdminCmd)
}
