package cmd

import (
	"flag"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

func NewRootCmd(buildInfo BuildInfo, args []string, outWriter io.Writer, errWriter io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cloudaudit",
		Short:         "Cloud configuration compliance scanner",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(NewVersionCmd(buildInfo, outWriter))
	rootCmd.AddCommand(NewScanCmd(buildInfo, outWriter))
	rootCmd.AddCommand(NewPluginsCmd(outWriter))
	rootCmd.AddCommand(NewSnapshotCmd(outWriter))

	rootCmd.SetArgs(args[1:])
	rootCmd.SetOut(outWriter)
	rootCmd.SetErr(errWriter)

	return rootCmd
}

// Run is the entry point of the cloudaudit CLI. It runs the specified
// command based on the specified args.
func Run(buildInfo BuildInfo, args []string, outWriter io.Writer, errWriter io.Writer) error {

	initFlags()

	return NewRootCmd(buildInfo, args, outWriter, errWriter).Execute()
}

func initFlags() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	// Hide all klog flags except for -v
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		if f.Name != "v" {
			pflag.Lookup(f.Name).Hidden = true
		}
	})
}

func logger() klog.Logger {
	return klog.NewKlogr()
}
