package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	domfpa "github.com/palestra-cloud/gestionale-api/internal/domain/fatturapa"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/internal/infrastructure/sdi"
	"github.com/palestra-cloud/gestionale-api/pkg/config"
	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
	"github.com/palestra-cloud/gestionale-api/pkg/logger"
)

// GenerateInvoiceUseCase genera la fattura elettronica di una vendita:
//
//	validazione fiscale → numero progressivo → ProgressivoInvio →
//	albero XML → serializzazione → persistenza (stato generated) → storage
//
// La numerazione e la persistenza della fattura avvengono nella stessa
// transazione: se la generazione fallisce il numero non viene consumato.
type GenerateInvoiceUseCase struct {
	txRunner      TxRunner
	structureRepo repository.StructureRepository
	customerRepo  repository.CustomerRepository
	saleRepo      repository.SaleRepository
	invoiceRepo   repository.ElectronicInvoiceRepository
	settingRepo   repository.TenantSettingRepository
	numbering     *NumberingService
	xmlBuilder    *sdi.XMLBuilderService
	storage       ports.Storage
	sdiConfig     config.SDIConfig
	log           *logger.Logger

	now func() time.Time
}

// NewGenerateInvoiceUseCase costruisce il caso d'uso.
func NewGenerateInvoiceUseCase(
	txRunner TxRunner,
	structureRepo repository.StructureRepository,
	customerRepo repository.CustomerRepository,
	saleRepo repository.SaleRepository,
	invoiceRepo repository.ElectronicInvoiceRepository,
	settingRepo repository.TenantSettingRepository,
	numbering *NumberingService,
	xmlBuilder *sdi.XMLBuilderService,
	storage ports.Storage,
	sdiConfig config.SDIConfig,
	log *logger.Logger,
) *GenerateInvoiceUseCase {
	return &GenerateInvoiceUseCase{
		txRunner:      txRunner,
		structureRepo: structureRepo,
		customerRepo:  customerRepo,
		saleRepo:      saleRepo,
		invoiceRepo:   invoiceRepo,
		settingRepo:   settingRepo,
		numbering:     numbering,
		xmlBuilder:    xmlBuilder,
		storage:       storage,
		sdiConfig:     sdiConfig,
		log:           log,
		now:           time.Now,
	}
}

// Generate genera (o rigenera, finché lo stato lo consente) la fattura
// elettronica della vendita. documentTypeOverride forza il TipoDocumento.
func (uc *GenerateInvoiceUseCase) Generate(ctx context.Context, structureID, saleID, documentTypeOverride string) (*entity.ElectronicInvoice, error) {
	sale, err := uc.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	if sale.StructureID != structureID {
		return nil, domain.ErrForbidden
	}
	if len(sale.Rows) == 0 {
		return nil, fmt.Errorf("%w: vendita senza righe", domain.ErrInvalidInput)
	}

	seller, err := uc.structureRepo.GetByID(ctx, structureID)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, domain.ErrNotFound
	}

	customer, err := uc.customerRepo.GetByID(ctx, sale.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	if customer.AnonymizedAt != nil {
		return nil, fmt.Errorf("%w: cliente anonimizzato", domain.ErrMissingFiscalData)
	}

	existing, err := uc.invoiceRepo.GetBySaleID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.XMLLocked() {
		return nil, fmt.Errorf("%w: fattura %s in stato %s", domain.ErrInvoiceLocked, existing.ID, existing.SDIStatus)
	}

	buildCtx, err := uc.prepareBuildContext(ctx, sale, seller, customer)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	var invoice *entity.ElectronicInvoice

	err = uc.txRunner.RunBilling(ctx, func(
		saleRepo repository.SaleRepository,
		invoiceRepo repository.ElectronicInvoiceRepository,
		_ repository.SendAttemptRepository,
	) error {
		// 1) Numero progressivo, se non ancora assegnato.
		if !sale.HasProgressiveNumber() {
			if err := uc.numbering.AssignProgressive(ctx, saleRepo, sale, now); err != nil {
				return err
			}
		}
		docType := sdi.ResolveDocumentType(sale, documentTypeOverride)
		sale.DocumentTypeCode = docType
		sale.UpdatedAt = now
		if err := saleRepo.Update(ctx, sale); err != nil {
			return err
		}

		// 2) Costruzione e serializzazione XML.
		buildCtx.DocumentTypeOverride = docType
		buildCtx.TransmissionID = fatturapa.NewTransmissionID(now)
		tree, err := uc.xmlBuilder.Build(buildCtx)
		if err != nil {
			return err
		}
		xmlBytes, err := domfpa.Serialize(tree)
		if err != nil {
			return fmt.Errorf("serializzazione XML: %w", err)
		}

		// 3) Persistenza della fattura in stato generated.
		xmlPath := fmt.Sprintf("fatture/%s/%d/%s.xml", structureID, sale.Year, buildCtx.TransmissionID)
		if existing == nil {
			invoice = &entity.ElectronicInvoice{
				StructureID:        structureID,
				SaleID:             saleID,
				XMLContent:         string(xmlBytes),
				XMLVersion:         domfpa.SchemaVersion,
				TransmissionID:     buildCtx.TransmissionID,
				TransmissionFormat: buildCtx.TransmissionFormat,
				SDIStatus:          entity.SDIStatusGenerated,
				SDIStatusUpdatedAt: now,
				XMLFilePath:        xmlPath,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if err := invoiceRepo.Create(ctx, invoice); err != nil {
				return err
			}
		} else {
			// Rigenerazione: draft e generated sono gli unici stati ammessi.
			invoice = existing
			invoice.XMLContent = string(xmlBytes)
			invoice.TransmissionID = buildCtx.TransmissionID
			invoice.TransmissionFormat = buildCtx.TransmissionFormat
			invoice.SDIStatus = entity.SDIStatusGenerated
			invoice.SDIStatusUpdatedAt = now
			invoice.XMLFilePath = xmlPath
			invoice.UpdatedAt = now
			if err := invoiceRepo.Update(ctx, invoice); err != nil {
				return err
			}
		}

		// 4) Copia su storage (dentro la tx: il rollback lascia un file
		// orfano al più, mai una fattura senza file).
		if err := uc.storage.Put(ctx, "local", xmlPath, xmlBytes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("invoice_id", invoice.ID).
		Str("sale_id", saleID).
		Str("numero", sale.ProgressiveNumber()).
		Str("progressivo_invio", invoice.TransmissionID).
		Msg("fattura elettronica generata")
	return invoice, nil
}

// prepareBuildContext raccoglie le impostazioni tenant e gli estremi della
// fattura originale (per le note di credito).
func (uc *GenerateInvoiceUseCase) prepareBuildContext(ctx context.Context, sale *entity.Sale, seller *entity.Structure, customer *entity.Customer) (*sdi.BuildContext, error) {
	stampCharged, err := uc.settingRepo.GetBool(ctx, sale.StructureID, entity.SettingStampDutyChargeCustomer, false)
	if err != nil {
		return nil, err
	}

	format := fatturapa.FormatoFPR12
	if v, ok, err := uc.settingRepo.Get(ctx, sale.StructureID, entity.SettingTransmissionFormat); err != nil {
		return nil, err
	} else if ok && fatturapa.ValidTransmissionFormats[v] {
		format = v
	}

	buildCtx := &sdi.BuildContext{
		Sale:                       sale,
		Seller:                     seller,
		Customer:                   customer,
		TransmitterCountry:         uc.sdiConfig.TransmitterCountry,
		TransmitterID:              uc.sdiConfig.TransmitterID,
		TransmissionFormat:         format,
		StampDutyChargedToCustomer: stampCharged,
	}

	if sale.OriginalSaleID != "" {
		original, err := uc.saleRepo.GetByID(ctx, sale.OriginalSaleID)
		if err != nil {
			return nil, err
		}
		if original != nil && original.HasProgressiveNumber() {
			buildCtx.OriginalInvoiceNumber = original.ProgressiveNumber()
			d := original.Date
			buildCtx.OriginalInvoiceDate = &d
		}
	}
	return buildCtx, nil
}
