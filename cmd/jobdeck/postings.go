package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvelez/jobdeck/internal/model"
	"github.com/mvelez/jobdeck/internal/store"
)

var stageFilter string

var postingsCmd = &cobra.Command{
	Use:   "postings",
	Short: "List tracked postings",
	Long:  "List postings in the pipeline, optionally filtered by stage (discovered, ready, applied).",
	RunE:  runPostings,
}

func init() {
	postingsCmd.Flags().StringVar(&stageFilter, "stage", "", "filter by stage (default: all)")
	rootCmd.AddCommand(postingsCmd)
}

func runPostings(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	stage, err := model.ParseStageFilter(stageFilter)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	postings, err := st.ListByStage(cmd.Context(), stage)
	if err != nil {
		return fmt.Errorf("listing postings: %w", err)
	}

	if len(postings) == 0 {
		fmt.Println("no postings")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAGE\tSOURCE\tCOMPANY\tTITLE\tSPONSOR\tDISCOVERED")
	for _, p := range postings {
		sponsor := "?"
		if p.VisaSponsor != nil {
			if *p.VisaSponsor {
				sponsor = "yes"
			} else {
				sponsor = "no"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Stage, p.Source, p.Company, p.Title, sponsor,
			p.DiscoveredAt.Format("2006-01-02"),
		)
	}
	return w.Flush()
}
