package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lorachat/internal/config"
	"lorachat/internal/logging"
	"lorachat/internal/merge"
)

func newMergeCmd() *cobra.Command {
	var (
		o        merge.Options
		logLevel string
	)
	cmd := &cobra.Command{
		Use:     "merge",
		Short:   "Merge a LoRA adapter into its base model (llama-export-lora)",
		Example: "  lorachat merge --base qwen1_5-0_5b-chat-f16.gguf --adapter qwen_lora_result_v1/adapter.gguf --out merged_qwen_full.gguf",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc := config.Default().Log
			lc.Level = logLevel
			lc.Format = "console"
			log, closer, err := logging.New(lc)
			if err != nil {
				return err
			}
			defer closer.Close()
			o.Stdout = cmd.OutOrStdout()
			res, err := merge.Run(cmd.Context(), o, log)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "merged model written to %s (%d bytes)\n", res.Out, res.Bytes)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.Base, "base", "", "Base model GGUF file")
	f.StringVar(&o.Adapter, "adapter", "", "LoRA adapter GGUF file")
	f.StringVar(&o.Out, "out", "", "Output GGUF file")
	f.Float64Var(&o.Scale, "scale", 1, "Adapter scale")
	f.IntVar(&o.Threads, "threads", 0, "Threads for the merge tool (0 = tool default)")
	f.BoolVar(&o.Force, "force", false, "Overwrite the output file if it exists")
	f.StringVar(&o.Bin, "bin", config.Default().Model.ExportLoraBin, "Path to llama-export-lora")
	f.StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("adapter")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
