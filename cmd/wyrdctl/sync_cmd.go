package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wyrdstore/wyrd/internal/colors"
	"github.com/wyrdstore/wyrd/internal/register"
)

// syncDriver builds a register.SyncDriver from config + the repo's
// signing identity, the handle pull/push/sync all share.
func (r *repo) syncDriver() (*register.SyncDriver, error) {
	if r.cfg.Register.Endpoint == "" {
		return nil, fmt.Errorf("no register endpoint configured; run `wyrdctl config register.endpoint <url>`")
	}
	signer, err := loadOrCreateIdentity()
	if err != nil {
		return nil, err
	}
	client := register.NewClient(r.cfg.Register.Endpoint, r.cfg.Register.Token)
	d := register.NewSyncDriver(client, r.store, did, signer)
	if r.cfg.Register.RetryBudget > 0 {
		d.MaxPushRetries = r.cfg.Register.RetryBudget
	}
	return d, nil
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the register's revision and integrate it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		r, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		d, err := r.syncDriver()
		if err != nil {
			return err
		}
		sess, err := r.loadSession()
		if err != nil {
			return err
		}

		newSess, err := d.Pull(ctx, sess)
		if err != nil {
			return fmt.Errorf("pull: %w", err)
		}
		if err := r.saveSession(newSess); err != nil {
			return err
		}
		fmt.Printf("local_base=%s local_current=%s\n", newSess.LocalBase.HexString(), newSess.LocalCurrent.HexString())
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push local_current to the register via compare-and-swap",
	Long:  "Retries pull-then-push up to the configured retry budget on a 412 conflict.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		r, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		d, err := r.syncDriver()
		if err != nil {
			return err
		}
		sess, err := r.loadSession()
		if err != nil {
			return err
		}

		newSess, err := d.Push(ctx, sess)
		if err != nil {
			return fmt.Errorf("push: %w", err)
		}
		if err := r.saveSession(newSess); err != nil {
			return err
		}
		fmt.Println(colors.SuccessText("pushed " + newSess.LocalBase.HexString()))
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull then push (the common case)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		r, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		d, err := r.syncDriver()
		if err != nil {
			return err
		}
		sess, err := r.loadSession()
		if err != nil {
			return err
		}

		newSess, err := d.Sync(ctx, sess)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		if err := r.saveSession(newSess); err != nil {
			return err
		}
		fmt.Println(colors.SuccessText("synced " + newSess.LocalBase.HexString()))
		return nil
	},
}
