package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wyrdstore/wyrd/internal/colors"
	"github.com/wyrdstore/wyrd/internal/scalar"
)

var assertThe, assertOf, assertIs string

func transactFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&assertThe, "the", "", "attribute, as namespace/name")
	cmd.Flags().StringVar(&assertOf, "of", "", "entity, as a 64-hex digest or a URI to hash")
	cmd.Flags().StringVar(&assertIs, "is", "", "value, optionally prefixed kind:payload (i, f, b, s, bytes, attr, entity)")
	cmd.MarkFlagRequired("the")
	cmd.MarkFlagRequired("of")
	cmd.MarkFlagRequired("is")
}

var assertCmd = &cobra.Command{
	Use:   "assert",
	Short: "Stage an assertion for the next commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stageInstruction("assert")
	},
}

var retractCmd = &cobra.Command{
	Use:   "retract",
	Short: "Stage a retraction for the next commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stageInstruction("retract")
	},
}

func init() {
	transactFlags(assertCmd)
	transactFlags(retractCmd)
}

func stageInstruction(kind string) error {
	p := pendingInstruction{Kind: kind, The: assertThe, Of: assertOf, Is: assertIs}
	if _, err := resolveInstruction(p); err != nil {
		return fmt.Errorf("invalid %s: %w", kind, err)
	}
	if err := appendPending(p); err != nil {
		return err
	}
	fmt.Printf("staged %s %s %s %s\n", kind, assertThe, assertOf, assertIs)
	return nil
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List the transaction staged for the next commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ins, err := loadPending()
		if err != nil {
			return err
		}
		if len(ins) == 0 {
			fmt.Println("no pending instructions")
			return nil
		}
		for _, in := range ins {
			prefix := colors.AssertedPrefix()
			if in.Kind == "retract" {
				prefix = colors.RetractedPrefix()
			}
			fmt.Printf("%s %s %s %s\n", prefix, in.The, in.Of, in.Is)
		}
		return nil
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Run the commit pipeline over the staged transaction",
	Long:  "Normalizes staged instructions, resolves cardinality-one supersession, and advances all three indexes atomically, printing the new revision.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		pending, err := loadPending()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return fmt.Errorf("nothing staged; use `wyrdctl assert`/`wyrdctl retract` first")
		}

		r, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		txn := make([]scalar.Instruction, 0, len(pending))
		for _, p := range pending {
			in, err := resolveInstruction(p)
			if err != nil {
				return err
			}
			txn = append(txn, in)
		}

		sess, err := r.loadSession()
		if err != nil {
			return err
		}
		state, err := loadState(ctx, r.indexer, r.store, sess.LocalCurrent)
		if err != nil {
			return fmt.Errorf("load current state: %w", err)
		}

		_, rev, err := r.indexer.Commit(ctx, state, txn)
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		sess.LocalCurrent = rev
		if err := r.saveSession(sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		if err := clearPending(); err != nil {
			return fmt.Errorf("clear pending transaction: %w", err)
		}

		fmt.Println(colors.SuccessText(rev.HexString()))
		return nil
	},
}
