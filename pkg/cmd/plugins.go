package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aquasecurity/cloudaudit/pkg/plugins"
	"github.com/spf13/cobra"
)

func NewPluginsCmd(outWriter io.Writer) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:     "plugins",
		Aliases: []string{"list"},
		Short:   "List the built-in checks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listPlugins(cmd.Context(), outWriter, category)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list checks of the given category")
	return cmd
}

func listPlugins(ctx context.Context, out io.Writer, category string) error {
	catalog, err := plugins.NewCatalog(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCATEGORY\tTITLE")
	for _, p := range catalog.Plugins() {
		md := p.Metadata()
		if category != "" && !strings.EqualFold(category, md.Category) {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", md.ID, md.Category, md.Title)
	}
	return w.Flush()
}
