package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion 设置 --version 输出的版本信息，通常由 main 通过 ldflags 注入。
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// globalFlags 是所有子命令共享的参数。
type globalFlags struct {
	config  string
	input   string
	header  bool
	verbose bool
}

// NewRootCommand 创建 tagvalue 根命令；日志写到 logOut。
func NewRootCommand(logOut io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "tagvalue",
		Short:        "tagvalue ranks tags by how much they move item-retrieval distributions",
		Long:         `tagvalue estimates smoothed tag/item/user probabilities from an annotation corpus and ranks tags by the KL divergence they induce, either per user or globally.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if flags.verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(logOut, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("tagvalue %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "config file (.yaml, .json, .toml)")
	pf.StringVarP(&flags.input, "input", "i", "", "annotation file: user<TAB>item<TAB>tag[<TAB>date]")
	pf.BoolVar(&flags.header, "header", false, "skip the first line of the input")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")
	_ = root.MarkPersistentFlagRequired("input")

	root.AddCommand(newPersonalizedCmd(flags))
	root.AddCommand(newGlobalCmd(flags))
	root.AddCommand(newGContextCmd(flags))
	root.AddCommand(newItemsCmd(flags))
	root.AddCommand(newExperimentCmd(flags))

	return root
}

// Execute 运行 tagvalue 命令行。
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stderr).ExecuteContext(ctx)
}
