package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	fieldspkg "github.com/CEOAOVA/controlnotdev-sub000/internal/fields"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
	"github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields <document-type>",
	Short: "Show the field metadata for a document type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var opts []docai.Option
		if cfg.DocAI.BaseURL != "" {
			opts = append(opts, docai.WithBaseURL(cfg.DocAI.BaseURL))
		}
		client := docai.NewClient(cfg.DocAI.Key, opts...)
		provider := fieldspkg.NewProvider(client, time.Duration(cfg.Fields.CacheTTLMins)*time.Minute)

		meta, err := provider.Get(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "fields %s", args[0])
		}

		formatFieldGroups(os.Stdout, model.GroupFields(meta))
		return nil
	},
}

// formatFieldGroups writes fields grouped by category in a tabular layout.
func formatFieldGroups(out io.Writer, groups []model.FieldGroup) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, g := range groups {
		_, _ = fmt.Fprintf(w, "[%s]\n", g.Category)
		for _, f := range g.Fields {
			req := "optional"
			if f.Required {
				req = "required"
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", f.Name, f.Label, f.Type, req)
		}
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
