package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvelez/jobdeck/internal/ingest"
	"github.com/mvelez/jobdeck/internal/review"
	"github.com/mvelez/jobdeck/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a posting from pasted text",
	Long: `Read a job ad from stdin, infer its fields with the configured AI model,
and open an interactive review screen. The posting is only persisted after
you confirm it.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pasted, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(pasted) == 0 {
		return fmt.Errorf("nothing to import: paste the job ad on stdin")
	}

	_, inferrer := setupAI(cfg, logger)

	ctx := cmd.Context()
	inferred, err := inferrer.InferDraft(ctx, string(pasted))
	if err != nil {
		return fmt.Errorf("inferring draft fields: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	drafts := ingest.NewDraftRegistry(cfg.Drafts.TTL)
	normalizer := ingest.NewNormalizer(st, nil, drafts, logger)

	d := drafts.Add(ingest.Draft{
		Title:       inferred.Title,
		Company:     inferred.Company,
		Location:    inferred.Location,
		Description: inferred.Description,
		URL:         inferred.URL,
		Raw:         string(pasted),
	})

	confirmed, err := review.RunConfirmTUI(d)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Println("draft discarded, nothing was saved")
		return nil
	}

	p, created, err := normalizer.ConfirmDraft(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("confirming draft: %w", err)
	}

	if created {
		fmt.Printf("posting created: %s — %s at %s\n", p.ID, p.Title, p.Company)
	} else {
		fmt.Printf("already tracked: %s — %s at %s (stage %s)\n", p.ID, p.Title, p.Company, p.Stage)
	}
	return nil
}
