package main

import (
	"fmt"
	"os"

	"github.com/aquasecurity/cloudaudit/pkg/cmd"
	"k8s.io/klog/v2"
)

var (
	// These variables are populated via ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"

	buildInfo = cmd.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
)

// main is the entrypoint of the cloudaudit CLI executable command.
func main() {
	defer klog.Flush()
	klog.InitFlags(nil)

	if err := cmd.Run(buildInfo, os.Args, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		klog.Flush()
		os.Exit(1)
	}
}
