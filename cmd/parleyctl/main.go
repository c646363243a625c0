package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/parley/internal/config"
)

var (
	cfgPath string
	cfg     config.ClientConfig
)

func main() {
	root := &cobra.Command{
		Use:   "parleyctl",
		Short: "Voice session client and transcript tools for parley",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadClient(cfgPath)
			return err
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultClientPath(), "path to parleyctl config file")

	root.AddCommand(newCallCmd())
	root.AddCommand(newTranscriptsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
