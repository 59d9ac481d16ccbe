package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	wyrdconfig "github.com/wyrdstore/wyrd/internal/config"
	"github.com/wyrdstore/wyrd/internal/fact"
	"github.com/wyrdstore/wyrd/internal/register"
	"github.com/wyrdstore/wyrd/internal/session"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new wyrd-managed fact store",
	Long:  "Creates a .wyrd directory, a default config, a signing identity, and the genesis session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("init takes no arguments, %d given", len(args))
		}

		if _, err := os.Stat(wyrdDir); err == nil {
			return fmt.Errorf("%s already exists", wyrdDir)
		}

		if err := os.Mkdir(wyrdDir, os.ModePerm); err != nil {
			return fmt.Errorf("create %s: %w", wyrdDir, err)
		}
		log.Println("wyrd repository initialized")

		if err := wyrdconfig.SaveRepoConfig(wyrdconfig.DefaultConfig()); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}

		if _, err := generateIdentity(); err != nil {
			return fmt.Errorf("generate identity: %w", err)
		}
		log.Println("signing identity generated")

		sess, err := session.Open(wyrdDir)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		defer sess.Close()

		genesis := fact.GenesisRevision()
		if err := sess.Save(did, register.Session{LocalBase: genesis, LocalCurrent: genesis}, nil); err != nil {
			return fmt.Errorf("write genesis session: %w", err)
		}
		log.Printf("genesis revision %s recorded for did=%s\n", genesis.HexString(), did)
		return nil
	},
}
