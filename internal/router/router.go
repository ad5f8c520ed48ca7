package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/miklbjorn/email-summerhouse/internal/auth/jwks"
	"github.com/miklbjorn/email-summerhouse/internal/handler"
	"github.com/miklbjorn/email-summerhouse/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware. A nil
// verifier leaves the API group unauthenticated, which is only meant for
// local development.
func Setup(
	verifier *jwks.Verifier,
	ingestH *handler.IngestHandler,
	invoiceH *handler.InvoiceHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// Inbound mail webhook, guarded by its shared secret rather than a
	// bearer token.
	r.POST("/ingest/email", ingestH.Receive)

	// API docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	if verifier != nil {
		v1.Use(middleware.Auth(verifier))
	}

	invoices := v1.Group("/invoices")
	invoices.GET("", invoiceH.List)
	invoices.GET("/export", invoiceH.Export)
	invoices.GET("/:id", invoiceH.GetByID)
	invoices.PATCH("/:id", invoiceH.Update)
	invoices.DELETE("/:id", invoiceH.Delete)
	invoices.GET("/:id/files/:fileId", invoiceH.SourceFile)

	return r
}
