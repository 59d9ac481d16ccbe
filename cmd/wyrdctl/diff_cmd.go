package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wyrdstore/wyrd/internal/colors"
	"github.com/wyrdstore/wyrd/internal/diffstream"
	"github.com/wyrdstore/wyrd/internal/fact"
)

var diffCmd = &cobra.Command{
	Use:   "diff <revision-a> <revision-b>",
	Short: "Print the fact-level change stream between two revisions",
	Long:  "Runs the sparse-tree prune/expand/stream differential engine over the EAV index of each revision.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		revA, err := parseRevisionArg(args[0])
		if err != nil {
			return fmt.Errorf("revision a: %w", err)
		}
		revB, err := parseRevisionArg(args[1])
		if err != nil {
			return fmt.Errorf("revision b: %w", err)
		}

		r, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer r.Close()

		stream, err := diffstream.New(ctx, r.store, revA.EAV, revB.EAV)
		if err != nil {
			return fmt.Errorf("diff eav: %w", err)
		}
		changes, err := stream.Collect(ctx)
		if err != nil {
			return fmt.Errorf("collect diff: %w", err)
		}

		for _, c := range changes {
			of, the, is, err := fact.DecodeEAVKey(c.Entry.Key)
			if err != nil {
				return fmt.Errorf("decode changed entry: %w", err)
			}
			rec, err := fact.DecodeRecord(c.Entry.Value)
			if err != nil {
				return fmt.Errorf("decode changed record: %w", err)
			}
			liveness := "live"
			if !rec.Live {
				liveness = "retracted"
			}
			prefix := colors.AssertedPrefix()
			if c.Kind == diffstream.Remove {
				prefix = colors.RetractedPrefix()
			}
			fmt.Printf("%s %s %x %s (%s)\n", prefix, the.String(), of, formatScalar(is), liveness)
		}
		fmt.Printf("%d change(s)\n", len(changes))
		return nil
	},
}

// parseRevisionArg accepts either the headered wire form (ParseRevision)
// or the bare hex ETag/If-Match form (ParseHexString).
func parseRevisionArg(s string) (fact.Revision, error) {
	if rev, err := fact.ParseRevision(s); err == nil {
		return rev, nil
	}
	return fact.ParseHexString(s)
}
