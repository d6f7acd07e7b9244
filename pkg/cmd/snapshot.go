package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aquasecurity/cloudaudit/pkg/cache"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

func NewSnapshotCmd(outWriter io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Work with snapshots of collected API responses",
	}
	cmd.AddCommand(newSnapshotConvertCmd(outWriter))
	cmd.AddCommand(newSnapshotInspectCmd(outWriter))
	return cmd
}

func newSnapshotConvertCmd(outWriter io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "convert SNAPSHOT DB",
		Short:   "Convert a JSON or YAML snapshot into a bbolt file",
		Example: `  cloudaudit snapshot convert collection.json collection.db`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := cache.Load(args[0])
			if err != nil {
				return err
			}
			if err := cache.SaveBolt(args[1], snapshot); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(outWriter, "Saved %d entries to %s\n", snapshot.Len(), args[1])
			return nil
		},
	}
}

func newSnapshotInspectCmd(outWriter io.Writer) *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "inspect SNAPSHOT KEY",
		Short: "Print the outcome recorded for a key",
		Long: `Print the outcome recorded for a key.

KEY has the form service:operation:scope[:resource], e.g.
s3:getBucketAcl:us-east-1:bucketA.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cache.ParseKey(args[1])
			if err != nil {
				return err
			}
			snapshot, err := cache.Load(args[0])
			if err != nil {
				return err
			}
			outcome := snapshot.Get(key)
			_, _ = fmt.Fprintf(outWriter, "%s: %s\n", key, outcome.State())
			if outcome.IsAbsent() {
				return nil
			}
			if dump {
				var value interface{}
				if outcome.IsSucceeded() {
					if err := outcome.Decode(&value); err != nil {
						return err
					}
				} else {
					value = cache.ErrorText(outcome)
				}
				spew.Fdump(outWriter, value)
				return nil
			}
			data, err := json.MarshalIndent(outcome, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(outWriter, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "Dump the decoded value instead of printing JSON")
	return cmd
}
