package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// BuildInfo holds the version information stamped into the binary at build
// time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func NewVersionCmd(buildInfo BuildInfo, outWriter io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(outWriter, "cloudaudit Version: %+v\n", buildInfo)
			return nil
		},
	}
	return cmd
}
