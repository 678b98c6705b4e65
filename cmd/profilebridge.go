package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stephnangue/profilebridge/cmd/server"
	"github.com/stephnangue/profilebridge/cmd/token"
	"github.com/stephnangue/profilebridge/version"
)

var profilebridgeCmd = &cobra.Command{
	Use:   "profilebridge",
	Short: "Profilebridge serves your local AWS profiles to the browser",
	Long: `Profilebridge reads the AWS credentials and config files on this machine,
merges them into one profile catalog, and serves it over a token-authenticated
loopback API. It can also mint AWS console sign-in URLs for a profile so a
browser extension can open each profile in its own container tab.`,
	Version: version.Version,
}

func Execute() {
	if err := profilebridgeCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	profilebridgeCmd.AddCommand(server.ServerCmd)
	profilebridgeCmd.AddCommand(token.TokenCmd)
}
