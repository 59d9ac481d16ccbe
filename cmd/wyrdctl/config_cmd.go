package main

import (
	"fmt"

	"github.com/spf13/cobra"

	wyrdconfig "github.com/wyrdstore/wyrd/internal/config"
)

var configGlobal bool

var configCmd = &cobra.Command{
	Use:   "config <section.field> [value]",
	Short: "Get or set a configuration value",
	Long:  "With one argument, prints the value; with two, sets it (repo-local unless --global).",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			v, err := wyrdconfig.GetValue(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		}
		return wyrdconfig.SetValue(args[0], args[1], configGlobal)
	},
}

func init() {
	configCmd.Flags().BoolVar(&configGlobal, "global", false, "write to ~/.wyrdconfig instead of .wyrd/config")
}
