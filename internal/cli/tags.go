package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rushteam/tagkit/rankdist"
	"github.com/rushteam/tagkit/value"
)

// writeTagRanking 按价值降序输出 rank、tag、value 三列；n > 0 时只输出前 n 行。
func writeTagRanking(w io.Writer, values []value.TagValue, n int) error {
	byTag := make(map[int]float64, len(values))
	for _, tv := range values {
		byTag[tv.Tag] = tv.Value
	}
	ranked := rankdist.RankDescending(value.Tags(values), value.Values(values))
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	for i, tag := range ranked {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%.6g\n", i+1, tag, byTag[tag]); err != nil {
			return err
		}
	}
	return nil
}

func newPersonalizedCmd(flags *globalFlags) *cobra.Command {
	var (
		user int
		top  int
	)
	cmd := &cobra.Command{
		Use:   "personalized",
		Short: "Rank tags by KL(P(I|u,t) || P(I|u)) for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			values, err := e.calc.TagValuePersonalized(user, e.gamma.Items, e.gamma.Tags)
			if err != nil {
				return fmt.Errorf("user %d: %w", user, err)
			}
			return writeTagRanking(cmd.OutOrStdout(), values, top)
		},
	}
	cmd.Flags().IntVarP(&user, "user", "u", 0, "user id")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "print only the first n tags (0 = all)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newGlobalCmd(flags *globalFlags) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "global",
		Short: "Rank tags by KL(P(I|t) || P(I))",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			values, err := e.calc.TagValueItemSearch(e.gamma.Items, e.gamma.Tags)
			if err != nil {
				return err
			}
			return writeTagRanking(cmd.OutOrStdout(), values, top)
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "print only the first n tags (0 = all)")
	return cmd
}

func newGContextCmd(flags *globalFlags) *cobra.Command {
	var (
		user int
		top  int
	)
	cmd := &cobra.Command{
		Use:   "gcontext",
		Short: "Rank tags by global KL weighted by the user's expected item relevance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			values, err := e.calc.TagValueGContext(user, e.gamma.Items, e.gamma.Tags)
			if err != nil {
				return fmt.Errorf("user %d: %w", user, err)
			}
			return writeTagRanking(cmd.OutOrStdout(), values, top)
		},
	}
	cmd.Flags().IntVarP(&user, "user", "u", 0, "user id")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "print only the first n tags (0 = all)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
