package main

import (
	"fmt"
	"log"

	"github.com/miklbjorn/email-summerhouse/internal/auth/jwks"
	"github.com/miklbjorn/email-summerhouse/internal/config"
	"github.com/miklbjorn/email-summerhouse/internal/convert/workersai"
	"github.com/miklbjorn/email-summerhouse/internal/email/noop"
	"github.com/miklbjorn/email-summerhouse/internal/email/ses"
	"github.com/miklbjorn/email-summerhouse/internal/extractor"
	"github.com/miklbjorn/email-summerhouse/internal/extractor/claude"
	"github.com/miklbjorn/email-summerhouse/internal/handler"
	"github.com/miklbjorn/email-summerhouse/internal/lake"
	"github.com/miklbjorn/email-summerhouse/internal/mail"
	"github.com/miklbjorn/email-summerhouse/internal/port"
	"github.com/miklbjorn/email-summerhouse/internal/repository/postgres"
	"github.com/miklbjorn/email-summerhouse/internal/router"
	"github.com/miklbjorn/email-summerhouse/internal/service"
	s3storage "github.com/miklbjorn/email-summerhouse/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	invoiceRepo := postgres.NewInvoiceRepo(db)

	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	writer := lake.NewWriter(s3Client, cfg.S3.Bucket)

	engine := extractor.NewEngine(
		workersai.NewClient(&cfg.Converter),
		claude.NewClient(&cfg.Extractor),
	)

	var replies port.ReplySender
	if cfg.Reply.Provider == "ses" {
		replies, err = ses.NewSESSender(cfg.Reply.Region, cfg.Reply.FromAddress, cfg.Reply.FromName)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	} else {
		replies = noop.NewNoopSender()
	}

	policy := mail.NewPolicy(cfg.Mail.AllowedSenders, cfg.Mail.Recipients)

	ingestSvc := service.NewIngestService(policy, writer, engine, invoiceRepo, replies)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, s3Client, cfg.S3.Bucket, cfg.S3.PresignExpiry)

	ingestH := handler.NewIngestHandler(ingestSvc, cfg.Mail.IngestToken)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	healthH := handler.NewHealthHandler(db)

	var verifier *jwks.Verifier
	if cfg.Auth.JWKSURL != "" {
		verifier = jwks.NewVerifier(&cfg.Auth)
	} else {
		log.Println("no JWKS URL configured, API endpoints are unauthenticated")
	}

	r := router.Setup(verifier, ingestH, invoiceH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
