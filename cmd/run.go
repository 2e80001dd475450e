package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/intake"
	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

var (
	runDocType  string
	runTemplate string
	runDir      string
	runEmail    string
	runOutput   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one document end to end from a directory of scans",
	Long: `Uploads the scans found under --dir (one subdirectory per category,
e.g. vendedor/, comprador/, otros/), extracts the data, and when every
required field was found generates the final document. If required fields
are missing the command prints them and stops so the operator can finish
the capture interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p := env.Pipeline
		s := p.NewSession()
		s.DocumentType = runDocType
		s.TemplateID = runTemplate

		if err := loadScans(s, runDir); err != nil {
			return err
		}
		zap.L().Info("scans loaded",
			zap.Int("files", s.Files.Total()),
			zap.Strings("categories", s.Files.Categories()),
		)

		if err := p.Upload(ctx, s); err != nil {
			return eris.Wrap(err, "upload")
		}
		if err := p.Extract(ctx, s); err != nil {
			return eris.Wrap(err, "extract")
		}

		stats := s.Completion()
		fmt.Fprintf(os.Stderr, "Extracted %d fields, required completion %.0f%%\n",
			len(s.Extracted), stats.RequiredPercent)

		if ok, reason := p.CanAdvance(s); !ok {
			printMissingRequired(s)
			return eris.Errorf("run: %s", reason)
		}
		if err := p.Advance(ctx, s); err != nil {
			return err
		}

		preview, err := p.PreviewFill(ctx, s)
		if err != nil {
			return eris.Wrap(err, "preview")
		}
		fmt.Fprintf(os.Stderr, "Template fill %.0f%% (%d/%d placeholders)\n",
			preview.FillPercentage, preview.FilledPlaceholders, preview.TotalPlaceholders)
		for _, missing := range intake.MissingForDisplay(preview, cfg.Intake.MissingDisplayCap) {
			fmt.Fprintf(os.Stderr, "  missing: %s\n", missing)
		}

		if err := p.Advance(ctx, s); err != nil {
			return err
		}

		result, err := p.Generate(ctx, s, runOutput)
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		if runEmail != "" {
			subject := fmt.Sprintf("Documento generado: %s", result.Filename)
			body := "Su documento notarial está listo para descarga."
			if err := p.SendEmail(ctx, s, runEmail, subject, body); err != nil {
				// The document exists either way; report delivery separately.
				zap.L().Error("delivery failed", zap.Error(err))
				fmt.Fprintf(os.Stderr, "Document generated but delivery failed: %v\n", err)
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// loadScans reads category subdirectories into the session's file set.
// Files directly under dir land in the first default category bucket.
func loadScans(s *intake.Session, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return eris.Wrapf(err, "run: read scan directory %s", dir)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if !entry.IsDir() {
			if err := addScan(s, model.DefaultCategories[0], filepath.Join(dir, entry.Name())); err != nil {
				return err
			}
			continue
		}
		category := entry.Name()
		files, err := os.ReadDir(filepath.Join(dir, category))
		if err != nil {
			return eris.Wrapf(err, "run: read category %s", category)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if err := addScan(s, category, filepath.Join(dir, category, f.Name())); err != nil {
				return err
			}
		}
	}

	if s.Files.Total() == 0 {
		return eris.Errorf("run: no scans found under %s", dir)
	}
	return nil
}

func addScan(s *intake.Session, category, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "run: read scan %s", path)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	s.Files.Add(category, model.File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Content:     content,
	})
	return nil
}

func printMissingRequired(s *intake.Session) {
	fmt.Fprintln(os.Stderr, "Required fields still missing:")
	for _, f := range s.FieldMeta {
		if f.Required && !intake.IsFilled(s.Edited[f.Name]) {
			fmt.Fprintf(os.Stderr, "  - %s (%s)\n", f.Label, f.Name)
		}
	}
}

func init() {
	runCmd.Flags().StringVar(&runDocType, "type", "", "document type (required)")
	runCmd.Flags().StringVar(&runTemplate, "template", "", "template ID (required)")
	runCmd.Flags().StringVar(&runDir, "dir", "", "directory of categorized scans (required)")
	runCmd.Flags().StringVar(&runEmail, "email", "", "deliver the generated document to this address")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output filename (default: synthesized)")
	_ = runCmd.MarkFlagRequired("type")
	_ = runCmd.MarkFlagRequired("template")
	_ = runCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(runCmd)
}
