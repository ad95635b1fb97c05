package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zdk-labs/docchat/internal/ingest"
	"github.com/zdk-labs/docchat/internal/parsing"
	"github.com/zdk-labs/docchat/internal/progress"
	"github.com/zdk-labs/docchat/internal/store"
	"github.com/zdk-labs/docchat/internal/walker"
)

var (
	ingestProject  string
	ingestIncludes []string
	ingestExcludes []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Upload and ingest a directory of documents into a project",
	Long: `Walks a directory for supported files (per allowed_extensions), creates
the target project if needed and ingests every file so it becomes
searchable in chats.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		embedder, err := createEmbedder(cfg)
		if err != nil {
			return err
		}
		ch, err := newChunker(cfg)
		if err != nil {
			return err
		}

		db, vectors, err := openStores(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		if err := vectors.Load(ctx, vectorDir(cfg)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load vector store from %s: %v\n", vectorDir(cfg), err)
		}

		project, err := findOrCreateProject(ctx, db, ingestProject)
		if err != nil {
			return err
		}

		files, err := walker.Walk(args[0], walker.Options{
			Includes:   ingestIncludes,
			Excludes:   ingestExcludes,
			Extensions: cfg.AllowedExtensions,
		})
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No matching files found.")
			return nil
		}

		docs := make([]store.Document, 0, len(files))
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			name := filepath.Base(path)
			text, err := parsing.ExtractText(name, data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
				continue
			}
			doc, err := db.CreateDocument(ctx, project.ID, name, parsing.FileType(name), int64(len(data)), text)
			if err != nil {
				return fmt.Errorf("creating document %s: %w", name, err)
			}
			docs = append(docs, *doc)
		}

		reporter := progress.NewReporter()
		reporter.Start(len(docs))

		pipeline := ingest.NewPipeline(ch, embedder, vectors, db, cfg.EmbedTimeout())
		pipeline.SetProgressFunc(func(done, total int, name string) {
			reporter.Update(done, name)
		})

		result := pipeline.IngestAll(ctx, docs)
		reporter.Finish()

		if err := vectors.Persist(ctx, vectorDir(cfg)); err != nil {
			return fmt.Errorf("persisting vector store: %w", err)
		}

		fmt.Printf("Ingested %d documents into project %q (%d failed)\n",
			result.Processed, project.Name, result.Failed)
		for _, err := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %v\n", err)
		}
		return nil
	},
}

func findOrCreateProject(ctx context.Context, db *store.Store, name string) (*store.Project, error) {
	projects, err := db.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], nil
		}
	}
	return db.CreateProject(ctx, name, "")
}

func init() {
	ingestCmd.Flags().StringVar(&ingestProject, "project", "default", "target project name")
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "glob patterns to include (supports **)")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "glob patterns to exclude (supports **)")
	rootCmd.AddCommand(ingestCmd)
}
