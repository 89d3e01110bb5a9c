package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-discovery-service/internal/domain"
)

func newCitationsCmd(a *app) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "citations <doi-or-title>",
		Short: "Look up citation data for a paper on Semantic Scholar",
		Example: `  papersearch citations 10.1038/nature14539
  papersearch citations "Attention is all you need" --kind title`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := domain.IdentifierKind(kind)
			if !k.IsValid() {
				return fmt.Errorf("unsupported --kind %q: use doi or title", kind)
			}

			p, err := a.searchPipeline()
			if err != nil {
				return err
			}
			enricher := p.Citations()
			if enricher == nil {
				return fmt.Errorf("semantic scholar is disabled in the configuration")
			}

			identifier := strings.Join(args, " ")
			record := enricher.LookupCitationData(cmd.Context(), identifier, k)
			if record == nil {
				return fmt.Errorf("no citation data found for %q", identifier)
			}
			return a.render(record, func() error { return writeCitationTable(a.out, record) })
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(domain.IdentifierKindDOI), "identifier kind: doi or title")
	return cmd
}
