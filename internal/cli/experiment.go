package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rushteam/tagkit/config"
	"github.com/rushteam/tagkit/experiment"
)

func newExperimentCmd(flags *globalFlags) *cobra.Command {
	var (
		users   []int
		persist bool
	)
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Compare each user's personalized tag ranking with the global ranking",
		Long:  `experiment ranks tags per user and reports the Kendall-Tau top-k distance to the global item-search ranking. Without --users every user in the corpus is ranked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			e, err := loadEnv(ctx, flags)
			if err != nil {
				return err
			}

			r := &experiment.Runner{
				Calculator:  e.calc,
				Parallelism: e.cfg.Experiment.Parallelism,
				TopK:        e.cfg.Ranking.TopK,
				P:           e.cfg.Ranking.P,
				Logger:      logger,
			}
			if persist {
				rs, err := config.NewStore(ctx, e.cfg)
				if err != nil {
					return err
				}
				defer rs.KV.Close()
				r.Store = rs
			}

			var selected []int
			if cmd.Flags().Changed("users") {
				selected = users
			}
			prog := newProgress(logger)
			results, err := r.RankUsers(ctx, selected, e.gamma.Items, e.gamma.Tags)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Ranked %d users", len(results)))

			w := cmd.OutOrStdout()
			k := r.TopK
			for _, res := range results {
				if res.Skipped {
					fmt.Fprintf(w, "%d\tskipped\n", res.User)
					continue
				}
				head := res.Ranking.Tags
				if len(head) > k {
					head = head[:k]
				}
				fmt.Fprintf(w, "%d\t%.6f\t%s\n", res.User, res.Distance, joinInts(head))
			}
			if mean := experiment.MeanDistance(results); !math.IsNaN(mean) {
				fmt.Fprintf(w, "mean\t%.6f\n", mean)
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&users, "users", nil, "comma-separated user ids (default: all users)")
	cmd.Flags().BoolVar(&persist, "persist", false, "save rankings to the configured store")
	return cmd
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
