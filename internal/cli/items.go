package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/tagkit/pkg/conv"
	"github.com/rushteam/tagkit/rankdist"
)

func newItemsCmd(flags *globalFlags) *cobra.Command {
	var (
		user int
		top  int
	)
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Print the top items for a user by log P(u|i) + log P(i)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			scores, err := e.calc.ItemValue(user)
			if err != nil {
				return fmt.Errorf("user %d: %w", user, err)
			}
			ranked := rankdist.RankDescending(conv.Range(len(scores)), scores)
			if top > 0 && top < len(ranked) {
				ranked = ranked[:top]
			}
			w := cmd.OutOrStdout()
			for i, item := range ranked {
				if _, err := fmt.Fprintf(w, "%d\t%d\t%.6g\n", i+1, item, scores[item]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&user, "user", "u", 0, "user id")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "number of items to print (0 = all)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
