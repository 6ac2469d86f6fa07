package cli

import (
	"context"
	"fmt"

	"github.com/rushteam/tagkit/config"
	"github.com/rushteam/tagkit/estimator"
	"github.com/rushteam/tagkit/store"
	"github.com/rushteam/tagkit/value"
)

// env 是子命令共用的运行环境。
type env struct {
	cfg   *config.Config
	est   *estimator.Smoothed
	calc  *value.Calculator
	gamma config.Gamma
}

func loadEnv(ctx context.Context, flags *globalFlags) (*env, error) {
	logger := loggerFromContext(ctx)

	cfg := config.Default()
	if flags.config != "" {
		var err error
		if cfg, err = config.Load(flags.config); err != nil {
			return nil, err
		}
	}

	var opts []store.TSVOption
	if flags.header {
		opts = append(opts, store.WithHeader())
	}
	stream, err := store.OpenTSV(flags.input, opts...)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer stream.Close()

	prog := newProgress(logger)
	est, err := config.NewEstimator(ctx, cfg, stream, logger)
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Indexed %d annotations", est.NumAnnotations()))

	gamma, err := config.NewGamma(cfg, est.Index())
	if err != nil {
		return nil, err
	}
	calc := value.New(est, value.WithRecommender(value.NewProbabilisticRecommender(est)))
	return &env{cfg: cfg, est: est, calc: calc, gamma: gamma}, nil
}
