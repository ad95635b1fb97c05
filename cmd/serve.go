package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zdk-labs/docchat/internal/ingest"
	"github.com/zdk-labs/docchat/internal/rag"
	"github.com/zdk-labs/docchat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docchat HTTP server",
	Long:  `Starts the HTTP API for projects, documents, chats and messages. State is persisted under the configured data directory.`,
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
		provider, err := createProvider(cfg)
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

		if err := vectors.Load(context.Background(), vectorDir(cfg)); err != nil {
			// The store may simply not have been persisted yet.
			fmt.Fprintf(os.Stderr, "Warning: could not load vector store from %s: %v\n", vectorDir(cfg), err)
		}
		log.Printf("vector store loaded with %d chunks", vectors.Count())

		pipeline := ingest.NewPipeline(ch, embedder, vectors, db, cfg.EmbedTimeout())
		retriever := rag.NewRetriever(embedder, vectors, cfg.TopK, cfg.EmbedTimeout())
		assembler := rag.NewAssembler(cfg.MaxContextChars, cfg.MinHistoryChars)
		orchestrator := rag.NewOrchestrator(db, retriever, assembler, provider, cfg.Model, cfg.GenerateTimeout())

		srv := server.New(cfg, db, pipeline, orchestrator)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Printf("received %s, shutting down", sig)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
		if err := vectors.Persist(shutdownCtx, vectorDir(cfg)); err != nil {
			log.Printf("persisting vector store: %v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
