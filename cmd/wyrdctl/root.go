package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const wyrdctlVersion = "0.1.0"

var did string

var rootCmd = &cobra.Command{
	Use:   "wyrdctl",
	Short: "wyrdctl drives a local-first, content-addressed fact store",
	Long:  `wyrdctl commits facts into a Probabilistic Search Tree fact store and synchronizes it against a register over a signed, compare-and-swap REST protocol.`,
	Run: func(cmd *cobra.Command, args []string) {
		if version {
			fmt.Printf("wyrdctl version %s\n", wyrdctlVersion)
			os.Exit(0)
		}
		cmd.Help()
	},
}

var version bool

// Execute runs the root command, exiting 1 on any returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&version, "version", false, "print wyrdctl's version")
	rootCmd.PersistentFlags().StringVar(&did, "did", "local", "DID this command operates the session and signs envelopes as")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(assertCmd, retractCmd, pendingCmd, commitCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(pullCmd, pushCmd, syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaOneCmd, schemaManyCmd)
	rootCmd.AddCommand(registerCmd)
	registerCmd.AddCommand(registerServeCmd)
}
