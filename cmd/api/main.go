package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/palestra-cloud/gestionale-api/internal/application/analytics"
	"github.com/palestra-cloud/gestionale-api/internal/application/auth"
	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
	"github.com/palestra-cloud/gestionale-api/internal/application/preservation"
	"github.com/palestra-cloud/gestionale-api/internal/application/retention"
	"github.com/palestra-cloud/gestionale-api/internal/application/usecase"
	infraai "github.com/palestra-cloud/gestionale-api/internal/infrastructure/ai"
	infrapdf "github.com/palestra-cloud/gestionale-api/internal/infrastructure/pdf"
	"github.com/palestra-cloud/gestionale-api/internal/infrastructure/postgres"
	infrasdi "github.com/palestra-cloud/gestionale-api/internal/infrastructure/sdi"
	"github.com/palestra-cloud/gestionale-api/internal/infrastructure/storage"
	httpRouter "github.com/palestra-cloud/gestionale-api/internal/interfaces/http"
	"github.com/palestra-cloud/gestionale-api/pkg/config"
	"github.com/palestra-cloud/gestionale-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("caricamento configurazione: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("avvio applicazione")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connessione a PostgreSQL")
	}
	defer pool.Close()

	structureRepo := postgres.NewStructureRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)
	vatRateRepo := postgres.NewVatRateRepository(pool)
	invoiceRepo := postgres.NewElectronicInvoiceRepository(pool)
	attemptRepo := postgres.NewSendAttemptRepository(pool)
	policyRepo := postgres.NewRetentionPolicyRepository(pool)
	settingRepo := postgres.NewTenantSettingRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	store := storage.NewLocalStorage(cfg.Storage.Disks)

	// Canale SDI: cliente HTTP verso il provider intermediario.
	gateway := infrasdi.NewClient(infrasdi.ClientConfig{
		Endpoint:        cfg.SDI.Endpoint,
		SandboxEndpoint: cfg.SDI.SandboxEndpoint,
		Username:        cfg.SDI.Username,
		Password:        cfg.SDI.Password,
		Sandbox:         cfg.SDI.Sandbox,
	})

	classifier, err := infrasdi.NewErrorClassifier()
	if err != nil {
		log.Fatal().Err(err).Msg("catalogo errori SDI")
	}

	// LLM facoltativo per i suggerimenti sugli scarti non catalogati.
	var llm ports.LLMService
	if cfg.AI.AnthropicAPIKey != "" {
		llm = infraai.NewAnthropicService(cfg.AI.AnthropicAPIKey, cfg.AI.AnthropicModel)
	} else if cfg.AI.GeminiAPIKey != "" {
		llm = infraai.NewGeminiService(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel)
	}

	xmlBuilder := infrasdi.NewXMLBuilderService()
	numbering := billing.NewNumberingService(saleRepo)

	customerUC := billing.NewCustomerUseCase(customerRepo)
	vatRateUC := billing.NewVatRateUseCase(vatRateRepo)
	saleUC := billing.NewSaleUseCase(txRunner, saleRepo, customerRepo, vatRateRepo, settingRepo)
	generateUC := billing.NewGenerateInvoiceUseCase(
		txRunner, structureRepo, customerRepo, saleRepo, invoiceRepo,
		settingRepo, numbering, xmlBuilder, store, cfg.SDI, log,
	)
	sendUC := billing.NewSendInvoiceUseCase(txRunner, invoiceRepo, attemptRepo, gateway, classifier, llm, log)

	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	pdfUC := billing.NewPDFUseCase(invoiceRepo, saleRepo, structureRepo, customerRepo, pdfGenerator, store)

	preservationUC := preservation.NewUseCase(invoiceRepo, saleRepo, customerRepo, structureRepo, policyRepo, store, log)
	retentionUC := retention.NewUseCase(
		txRunner, invoiceRepo, saleRepo, policyRepo,
		infrasdi.NewXMLAnonymizer(), store, log,
	)

	dashboardUC := analytics.NewDashboardUseCase(saleRepo, invoiceRepo)

	structureUC := usecase.NewStructureUseCase(structureRepo)
	moduleSvc := usecase.NewModuleService(structureRepo)
	settingsUC := usecase.NewSettingsUseCase(settingRepo)
	authUC := auth.NewUseCase(userRepo, structureRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI in locale: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Gestionale API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:          authUC,
		StructureUC:     structureUC,
		ModuleService:   moduleSvc,
		SettingsUC:      settingsUC,
		CustomerUC:      customerUC,
		VatRateUC:       vatRateUC,
		SaleUC:          saleUC,
		Numbering:       numbering,
		GenerateInvoice: generateUC,
		SendInvoice:     sendUC,
		PDFUC:           pdfUC,
		PreservationUC:  preservationUC,
		RetentionUC:     retentionUC,
		DashboardUC:     dashboardUC,
		JWTSecret:       cfg.JWT.Secret,
		WebhookToken:    cfg.SDI.WebhookToken,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("server HTTP terminato")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("segnale di arresto ricevuto, chiusura server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("arresto del server")
	}

	log.Info().Msg("applicazione fermata")
}
