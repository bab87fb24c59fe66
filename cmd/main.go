package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vehicle-spec-rag/internal/bootstrap"
	"vehicle-spec-rag/internal/chunker"
	"vehicle-spec-rag/internal/config"
	"vehicle-spec-rag/internal/helper"
	"vehicle-spec-rag/internal/parser"
	"vehicle-spec-rag/internal/rag"
	httptransport "vehicle-spec-rag/internal/transport/http"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the document file to ingest")
	query := flag.String("query", "", "Query to be answered")
	dryRun := flag.Bool("dry-run", false, "Extract and chunk the file, do not embed or store it")
	serve := flag.Bool("serve", false, "Start the HTTP server")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if *filePath != "" && *query != "" {
		log.Fatal().Msg("Please provide either a document file using the -file flag or a query using the -query flag, but not both")
	}

	ctx := context.Background()

	if *filePath != "" && *dryRun {
		prepareFile(cfg, *filePath)
		return
	}

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing app")
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing resources")
		}
	}()

	switch {
	case *filePath != "":
		if err := ingestFile(ctx, app, *filePath); err != nil {
			log.Fatal().Err(err).Msg("Error ingesting document")
		}
	case *query != "":
		if err := answerQuery(ctx, app, *query); err != nil {
			log.Fatal().Err(err).Msg("Error querying")
		}
	case *serve:
		runServer(app)
	default:
		log.Fatal().Msg("Please provide a document file using the -file flag, a query using the -query flag, or -serve")
	}
}

func prepareFile(cfg *config.Config, filePath string) {
	ingestor := rag.NewIngestor(
		parser.ExtractPages,
		chunker.New(cfg.RAG.SentenceGroupSize, cfg.RAG.MinTokenLength),
		nil, nil, nil,
	)
	pages, chunks, err := ingestor.Prepare(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	log.Info().Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Parsed content")
	helper.PrettyPrint(chunks)
}

func ingestFile(ctx context.Context, app *bootstrap.App, filePath string) error {
	report, err := app.Ingestor.Ingest(ctx, filePath, app.Config.RAG.CollectionName)
	if err != nil {
		return err
	}
	fmt.Printf("Successfully processed '%s'. Index rebuilt with %d chunks.\n", report.Source, report.Chunks)
	return nil
}

func answerQuery(ctx context.Context, app *bootstrap.App, query string) error {
	response, err := app.RAG.Query(ctx, query)
	if err != nil {
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, s := range response.Sources {
		fmt.Printf("[%s p.%d %.3f] %s\n", s.SourceName, s.PageNumber, s.Similarity, s.Text)
	}
	fmt.Println()

	log.Info().Msg("Answer: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(response.Answer)
	return nil
}

func runServer(app *bootstrap.App) {
	server := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           httptransport.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
