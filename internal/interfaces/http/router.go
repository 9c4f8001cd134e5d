package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/analytics"
	"github.com/palestra-cloud/gestionale-api/internal/application/auth"
	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/application/preservation"
	"github.com/palestra-cloud/gestionale-api/internal/application/retention"
	"github.com/palestra-cloud/gestionale-api/internal/application/usecase"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// RouterDeps dipendenze del router.
type RouterDeps struct {
	AuthUC          *auth.UseCase
	StructureUC     *usecase.StructureUseCase
	ModuleService   *usecase.ModuleService
	SettingsUC      *usecase.SettingsUseCase
	CustomerUC      *billing.CustomerUseCase
	VatRateUC       *billing.VatRateUseCase
	SaleUC          *billing.SaleUseCase
	Numbering       *billing.NumberingService
	GenerateInvoice *billing.GenerateInvoiceUseCase
	SendInvoice     *billing.SendInvoiceUseCase
	PDFUC           *billing.PDFUseCase
	PreservationUC  *preservation.UseCase
	RetentionUC     *retention.UseCase
	DashboardUC     *analytics.DashboardUseCase
	JWTSecret       string
	WebhookToken    string
}

// Router registra le rotte dell'API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (pubblico)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	invoiceHandler := NewInvoiceHandler(deps.GenerateInvoice, deps.SendInvoice, deps.PDFUC)

	// Webhook SDI (pubblico, autenticato con token statico)
	api.Post("/webhooks/sdi", invoiceHandler.Webhook(deps.WebhookToken))

	// Rotte protette (Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Structures (protetto; creazione e lista riservate all'onboarding admin)
	structures := protected.Group("/structures")
	structureHandler := NewStructureHandler(deps.StructureUC, deps.ModuleService, deps.SettingsUC)
	structures.Post("/", RequireRole(entity.RoleAdmin), structureHandler.Create)
	structures.Get("/", RequireRole(entity.RoleAdmin), structureHandler.List)
	structures.Put("/me", RequireRole(entity.RoleAdmin), structureHandler.Update)
	structures.Get("/me/modules", structureHandler.ListModules)
	structures.Get("/:id", structureHandler.GetByID)

	// Impostazioni tenant (protetto, solo admin in scrittura)
	settings := protected.Group("/settings")
	settings.Get("/:key", structureHandler.GetSetting)
	settings.Put("/", RequireRole(entity.RoleAdmin), structureHandler.SetSetting)

	// Customers (protetto)
	customers := protected.Group("/customers")
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Post("/", customerHandler.Create)
	customers.Get("/", customerHandler.List)
	customers.Get("/:id", customerHandler.GetByID)
	customers.Put("/:id", customerHandler.Update)

	// VAT rates (protetto)
	vatRates := protected.Group("/vat-rates")
	vatRateHandler := NewVatRateHandler(deps.VatRateUC)
	vatRates.Post("/", RequireRole(entity.RoleAdmin, entity.RoleSegreteria), vatRateHandler.Create)
	vatRates.Get("/", vatRateHandler.List)

	// Sales (protetto, modulo billing)
	billingGated := protected.Group("/", RequireModule(entity.ModuleBilling, deps.ModuleService))
	sales := billingGated.Group("/sales")
	saleHandler := NewSaleHandler(deps.SaleUC, deps.Numbering)
	sales.Post("/", saleHandler.Create)
	sales.Get("/", saleHandler.List)
	sales.Get("/sequence/:year", RequireRole(entity.RoleAdmin, entity.RoleSegreteria), saleHandler.SequenceIntegrity)
	sales.Get("/:id", saleHandler.GetByID)
	sales.Post("/:id/invoice", invoiceHandler.Generate)

	// Dashboard fatturato (protetto, modulo billing)
	analyticsHandler := NewAnalyticsHandler(deps.DashboardUC)
	billingGated.Get("/dashboard/summary", analyticsHandler.Summary)

	// Invoices (protetto, modulo billing)
	invoices := billingGated.Group("/invoices")
	invoices.Post("/:id/send", invoiceHandler.Send)
	invoices.Get("/:id/status", invoiceHandler.Status)
	invoices.Get("/:id/errors", invoiceHandler.Errors)
	invoices.Get("/:id/attempts", invoiceHandler.Attempts)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)
	invoices.Get("/:id/xml", invoiceHandler.DownloadXML)
	invoices.Get("/:id/receipt", invoiceHandler.DownloadReceipt)

	// Conservazione sostitutiva (protetto, modulo preservation)
	preservationGated := protected.Group("/", RequireModule(entity.ModulePreservation, deps.ModuleService))
	preservationHandler := NewPreservationHandler(deps.PreservationUC)
	preservationGated.Post("/invoices/:id/preserve", preservationHandler.Preserve)
	preservationGroup := preservationGated.Group("/preservation")
	preservationGroup.Post("/batch", preservationHandler.PreserveBatch)
	preservationGroup.Get("/export/:year", preservationHandler.Export)
	preservationGroup.Post("/cleanup", RequireRole(entity.RoleAdmin), preservationHandler.Cleanup)
	preservationGroup.Get("/statistics/:year", preservationHandler.Statistics)
	preservationGated.Get("/invoices/:id/preservation/verify", preservationHandler.Verify)

	// Motore GDPR (protetto, solo admin)
	retentionHandler := NewRetentionHandler(deps.RetentionUC)
	retentionGroup := protected.Group("/retention", RequireRole(entity.RoleAdmin))
	retentionGroup.Get("/dashboard", retentionHandler.Dashboard)
	retentionGroup.Post("/anonymize", retentionHandler.AnonymizeExpired)
	retentionGroup.Get("/policy", retentionHandler.GetPolicy)
	retentionGroup.Put("/policy", retentionHandler.UpdatePolicy)
	protected.Post("/invoices/:id/anonymize", RequireRole(entity.RoleAdmin), retentionHandler.AnonymizeInvoice)
}
