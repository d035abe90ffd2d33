package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"lorachat/internal/model"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "lorachat %s (%s, %s/%s, llama-cpp in-process: %t)\n",
				Version, runtime.Version(), runtime.GOOS, runtime.GOARCH, model.LlamaCppBuilt)
			return err
		},
	}
}
