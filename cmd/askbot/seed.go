package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/askbot/internal/config"
	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/storage"
)

//go:embed seed_sample.yaml
var sampleContent []byte

// seedDoc is the YAML layout accepted by "askbot seed".
type seedDoc struct {
	Categories []seedCategory `yaml:"categories"`
}

type seedCategory struct {
	Names      lang.Texts     `yaml:"names"`
	SourceLang string         `yaml:"source_lang"`
	Visible    *bool          `yaml:"visible"`
	Responses  []seedResponse `yaml:"responses"`
	Children   []seedCategory `yaml:"children"`
}

type seedResponse struct {
	Type       string     `yaml:"type"`
	Answers    lang.Texts `yaml:"answers"`
	FileURL    string     `yaml:"file_url"`
	SourceLang string     `yaml:"source_lang"`
}

type seedCounts struct {
	Categories int
	Responses  int
	Skipped    int
}

func parseSeed(data []byte) (seedDoc, error) {
	var doc seedDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return seedDoc{}, fmt.Errorf("parsing seed file: %w", err)
	}
	if len(doc.Categories) == 0 {
		return seedDoc{}, fmt.Errorf("seed file has no categories")
	}
	return doc, nil
}

// seedContent inserts every category and response in doc that is not
// already stored. Running it twice changes nothing.
func seedContent(ctx context.Context, store *storage.Store, doc seedDoc) (seedCounts, error) {
	var counts seedCounts
	for _, c := range doc.Categories {
		if err := seedCategoryTree(ctx, store, 0, c, &counts); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

func seedCategoryTree(ctx context.Context, store *storage.Store, parentID int64, sc seedCategory, counts *seedCounts) error {
	if sc.Names.FR == "" {
		return fmt.Errorf("category without a French name (en=%q)", sc.Names.EN)
	}
	visible := true
	if sc.Visible != nil {
		visible = *sc.Visible
	}
	src, _ := lang.Parse(sc.SourceLang)

	cat, err := store.EnsureCategory(ctx, storage.Category{
		ParentID:   parentID,
		Names:      sc.Names,
		SourceLang: src,
		Visible:    visible,
	})
	if err != nil {
		return err
	}
	counts.Categories++

	for _, sr := range sc.Responses {
		rsrc, _ := lang.Parse(sr.SourceLang)
		_, inserted, err := store.EnsureResponse(ctx, storage.Response{
			CategoryID: cat.ID,
			Type:       storage.ResponseType(sr.Type),
			Answers:    sr.Answers,
			FileURL:    sr.FileURL,
			SourceLang: rsrc,
		})
		if err != nil {
			return fmt.Errorf("category %q: %w", sc.Names.FR, err)
		}
		if inserted {
			counts.Responses++
		} else {
			counts.Skipped++
		}
	}

	for _, child := range sc.Children {
		if err := seedCategoryTree(ctx, store, cat.ID, child, counts); err != nil {
			return err
		}
	}
	return nil
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load categories and responses into the content store",
	Long: `Load categories and responses from a YAML file into the content store.

Existing categories (same French name and parent) and responses (same type,
category, French answer and file) are left untouched. Without --file a small
built-in sample is loaded. A running server picks up new content on restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		data := sampleContent
		if file != "" {
			var err error
			if data, err = os.ReadFile(file); err != nil {
				return fmt.Errorf("reading seed file: %w", err)
			}
		}
		doc, err := parseSeed(data)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		printStep("Seeding content into %s", cfg.Storage.DataDir)
		counts, err := seedContent(cmd.Context(), store, doc)
		if err != nil {
			return err
		}
		printSuccess("%d categories, %d new responses (%d already present)", counts.Categories, counts.Responses, counts.Skipped)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("file", "", "YAML file with categories and responses")
}
