package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/papersources"
)

func newRecommendCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "recommend <semantic-scholar-paper-id>",
		Short:   "List papers Semantic Scholar recommends for a paper",
		Example: `  papersearch recommend 649def34f8be52c8b66281af98ae884c09aef38b --limit 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			related, err := a.relatedSource()
			if err != nil {
				return err
			}
			papers := related.Recommendations(cmd.Context(), args[0], limit)
			return a.renderPapers(papers)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of recommendations")
	return cmd
}

func newRelatedCmd(a *app) *cobra.Command {
	var (
		limit  int
		fields []string
	)

	cmd := &cobra.Command{
		Use:   "related <query>",
		Short: "Search Semantic Scholar directly, without enrichment or ranking",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			related, err := a.relatedSource()
			if err != nil {
				return err
			}
			papers := related.Search(cmd.Context(), strings.Join(args, " "), limit, fields)
			return a.renderPapers(papers)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of papers")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Semantic Scholar fields to request (default: all normalized fields)")
	return cmd
}

func (a *app) relatedSource() (papersources.RelatedPaperSource, error) {
	p, err := a.searchPipeline()
	if err != nil {
		return nil, err
	}
	related := p.Related()
	if related == nil {
		return nil, fmt.Errorf("semantic scholar is disabled in the configuration")
	}
	return related, nil
}

func (a *app) renderPapers(papers []domain.Paper) error {
	if papers == nil {
		papers = []domain.Paper{}
	}
	return a.render(papers, func() error { return writePaperTable(a.out, papers) })
}
