// Package app builds the API clients and the expense pipeline from configuration.
// Clients are created once per process and shared by every invocation.
package app

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/dvloznov/expense-inbox/internal/extractor"
	"github.com/dvloznov/expense-inbox/internal/gcs"
	"github.com/dvloznov/expense-inbox/internal/ledger"
	"github.com/dvloznov/expense-inbox/internal/notify"
	"github.com/dvloznov/expense-inbox/internal/pipeline"
)

// App holds the wired components.
type App struct {
	Config       *config.Config
	Storage      *storage.Client
	Extractor    *extractor.Gemini
	Ledger       *ledger.SheetsWriter
	Notifier     *notify.Notifier
	Location     *time.Location
	Orchestrator *pipeline.Orchestrator
}

// NewExtractor creates the model extractor alone. The CLI uses it without the rest of the stack.
func NewExtractor(ctx context.Context, cfg config.ModelConfig) (*extractor.Gemini, error) {
	client, err := extractor.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return extractor.NewGemini(client.Models, cfg.Name, extractor.Protocol(cfg.ExtractionMode)), nil
}

// NewLedger creates the sheet writer alone.
func NewLedger(ctx context.Context, cfg *config.Config) (*ledger.SheetsWriter, error) {
	svc, err := ledger.NewSheetsService(ctx, cfg.Services)
	if err != nil {
		return nil, err
	}
	return ledger.NewSheetsWriter(svc, cfg.Sheet.SpreadsheetID, cfg.Sheet.Title), nil
}

// New wires every client and the orchestrator.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := ledger.LoadLocation(cfg.Sheet.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app: ledger timezone: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: create storage client: %w", err)
	}

	ext, err := NewExtractor(ctx, cfg.Model)
	if err != nil {
		storageClient.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	writer, err := NewLedger(ctx, cfg)
	if err != nil {
		storageClient.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	gmailSvc, err := notify.NewGmailService(ctx, cfg.Services, cfg.Mail.ReceivingEmail)
	if err != nil {
		storageClient.Close()
		return nil, fmt.Errorf("app: %w", err)
	}
	notifier := notify.NewNotifier(notify.NewGmailSender(gmailSvc), cfg.Mail.ReceivingEmail)

	p := pipeline.NewExpensePipeline(pipeline.Deps{
		Fetcher:   gcs.NewStorageFetcher(storageClient),
		Extractor: ext,
		Writer:    writer,
		Location:  loc,
		Allowed:   cfg.Mail.SendingEmail,
	})

	return &App{
		Config:       cfg,
		Storage:      storageClient,
		Extractor:    ext,
		Ledger:       writer,
		Notifier:     notifier,
		Location:     loc,
		Orchestrator: pipeline.NewOrchestrator(p, notifier, cfg.Storage.ObjectKeyPrefix),
	}, nil
}

// Close releases the clients that hold connections.
func (a *App) Close() error {
	return a.Storage.Close()
}
