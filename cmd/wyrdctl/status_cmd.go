package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wyrdstore/wyrd/internal/register"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local_base/local_current and the register's HEAD",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		r, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		sess, err := r.loadSession()
		if err != nil {
			return err
		}
		fmt.Printf("did:           %s\n", did)
		fmt.Printf("local_base:    %s\n", sess.LocalBase.HexString())
		fmt.Printf("local_current: %s\n", sess.LocalCurrent.HexString())

		if r.cfg.Register.Endpoint == "" {
			fmt.Println("remote:        (no register endpoint configured)")
			return nil
		}
		client := register.NewClient(r.cfg.Register.Endpoint, r.cfg.Register.Token)
		remote, ok, err := client.Head(ctx, did)
		if err != nil {
			return fmt.Errorf("head register: %w", err)
		}
		if !ok {
			fmt.Println("remote:        (register has never seen this did)")
			return nil
		}
		fmt.Printf("remote:        %s\n", remote)
		if remote == sess.LocalBase.HexString() {
			fmt.Println("               up to date")
		} else {
			fmt.Println("               diverged from local_base; run `wyrdctl pull`")
		}
		return nil
	},
}
