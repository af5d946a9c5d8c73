package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/infra/database"
	"github.com/totegamma/portfolio/internal/infra/repository"
	"github.com/totegamma/portfolio/internal/infra/storage"
	"github.com/totegamma/portfolio/internal/service"
)

var (
	adminEmail    string
	adminPassword string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(conf)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		zap.L().Info("schema migrated", zap.String("driver", conf.Server.Driver))
		return nil
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		password := adminPassword
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}

		db, err := openDatabase(conf)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}

		auth := service.NewAuthService(repository.NewAdminRepository(db), conf.Auth.JwtSecret)
		admin, err := auth.CreateAdmin(cmd.Context(), adminEmail, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Email, admin.ID)
		return nil
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <resource>",
	Short: "Renumber a collection's order values to 1..N",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !portfolio.IsOrderedResource(args[0]) {
			return fmt.Errorf("unknown resource %q (known: %v)", args[0], portfolio.OrderedResources)
		}
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(conf)
		if err != nil {
			return err
		}
		files, err := storage.NewLocal(conf.Server.StoragePath, conf.Domain().PublicBaseURL)
		if err != nil {
			return err
		}

		// only a shared memcached list cache is invalidated from here
		settings := conf.Domain()
		revalidator := service.NewRevalidator(settings.RevalidationURL, settings.RevalidationSecret)
		defer revalidator.Wait()

		c := buildCollections(db, conf, newListCache(conf), revalidator, files)
		moved, err := c.normalize[args[0]](cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows renumbered\n", args[0], moved)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin email address")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (defaults to $ADMIN_PASSWORD)")
	_ = adminCreateCmd.MarkFlagRequired("email")
	adminCmd.AddCommand(adminCreateCmd)
}
