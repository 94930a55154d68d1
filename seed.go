package main

import (
	"github.com/spf13/cobra"

	"medibook-server/internal/models"
	"medibook-server/internal/seed"
)

func seedCmd() *cobra.Command {
	opts := seed.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo doctors, a demo patient and an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return err
			}
			n, err := seed.Run(cmd.Context(), db, opts, log)
			if err != nil {
				return err
			}
			log.Info().Int("created", n).Msg("seed complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.AdminEmail, "admin-email", opts.AdminEmail, "email of the admin account")
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", opts.AdminPassword, "password of the admin account")
	cmd.Flags().StringVar(&opts.DoctorPassword, "doctor-password", opts.DoctorPassword, "password of every demo doctor")
	cmd.Flags().StringVar(&opts.PatientPassword, "patient-password", opts.PatientPassword, "password of the demo patient")
	return cmd
}
