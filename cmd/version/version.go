// Package version implements the command that prints build metadata.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wildcam-go/wildcam/internal/buildinfo"
)

// Command creates a new cobra.Command to print version information.
func Command(bi buildinfo.BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of WildCam",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wildcam %s (built %s, %s %s/%s)\n",
				bi.GetVersion(), bi.GetBuildDate(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}

	return cmd
}
