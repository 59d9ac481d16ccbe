package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wyrdstore/wyrd/internal/fact"
)

var selectThe, selectOf, selectIs, selectHint string

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Run a pattern query over the current revision's live facts",
	Long:  "Picks whichever of EAV/AEV/VAE the pattern best constrains and prints every matching live fact.",
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
		state, err := loadState(ctx, r.indexer, r.store, sess.LocalCurrent)
		if err != nil {
			return fmt.Errorf("load current state: %w", err)
		}

		pattern, err := buildPattern()
		if err != nil {
			return err
		}

		facts, err := fact.Select(ctx, r.store, state, pattern)
		if err != nil {
			return fmt.Errorf("select: %w", err)
		}

		for _, f := range facts {
			fmt.Printf("%s %x %s\n", f.The.String(), f.Of, formatScalar(f.Is))
		}
		fmt.Printf("%d fact(s)\n", len(facts))
		return nil
	},
}

func buildPattern() (fact.Pattern, error) {
	var pattern fact.Pattern

	if selectThe != "" {
		attr, err := parseAttribute(selectThe)
		if err != nil {
			return pattern, err
		}
		pattern.The = &attr
	}
	if selectOf != "" {
		ent, err := parseEntity(selectOf)
		if err != nil {
			return pattern, err
		}
		pattern.Of = &ent
	}
	if selectIs != "" {
		is, err := parseScalar(selectIs)
		if err != nil {
			return pattern, err
		}
		pattern.Is = &is
	}
	switch selectHint {
	case "", "aev":
		pattern.Hint = fact.AEV
	case "vae":
		pattern.Hint = fact.VAE
	case "eav":
		pattern.Hint = fact.EAV
	default:
		return pattern, fmt.Errorf("unknown --hint %q (want aev, vae, or eav)", selectHint)
	}
	return pattern, nil
}

func init() {
	selectCmd.Flags().StringVar(&selectThe, "the", "", "constrain by attribute, as namespace/name")
	selectCmd.Flags().StringVar(&selectOf, "of", "", "constrain by entity, as a 64-hex digest or a URI to hash")
	selectCmd.Flags().StringVar(&selectIs, "is", "", "constrain by value, optionally prefixed kind:payload")
	selectCmd.Flags().StringVar(&selectHint, "hint", "aev", "selectivity hint for an ambiguous (the, is) pattern: aev or vae")
}
