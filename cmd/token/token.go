package token

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stephnangue/profilebridge/auth"
	"github.com/stephnangue/profilebridge/config"
	"github.com/stephnangue/profilebridge/logger"
)

var (
	configPath string

	TokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage the API token the browser extension authenticates with",
	}

	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the current API token, generating one if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := tokenManager()
			if err != nil {
				return err
			}
			token, err := manager.LoadOrCreate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	rotateCmd = &cobra.Command{
		Use:   "rotate",
		Short: "Generate a new API token, invalidating the old one",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := tokenManager()
			if err != nil {
				return err
			}
			token, err := manager.Rotate()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintln(cmd.ErrOrStderr(), "Token rotated. Update the browser extension with the new value.")
			return nil
		},
	}
)

func tokenManager() (*auth.TokenManager, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.NewZerologLogger(&logger.Config{Level: logger.ErrorLevel})
	return auth.NewTokenManager(cfg.Auth.TokenFile, log), nil
}

func init() {
	TokenCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	TokenCmd.AddCommand(showCmd)
	TokenCmd.AddCommand(rotateCmd)
}
