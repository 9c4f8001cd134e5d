package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

// SaleUseCase gestisce il ciclo di vita della vendita (abbonamenti, ingressi,
// servizi). La vendita nasce senza numero progressivo: il numero viene
// assegnato alla generazione della fattura elettronica, non alla creazione.
type SaleUseCase struct {
	txRunner     TxRunner
	saleRepo     repository.SaleRepository
	customerRepo repository.CustomerRepository
	vatRateRepo  repository.VatRateRepository
	settingRepo  repository.TenantSettingRepository

	now func() time.Time
}

// NewSaleUseCase costruisce il caso d'uso.
func NewSaleUseCase(
	txRunner TxRunner,
	saleRepo repository.SaleRepository,
	customerRepo repository.CustomerRepository,
	vatRateRepo repository.VatRateRepository,
	settingRepo repository.TenantSettingRepository,
) *SaleUseCase {
	return &SaleUseCase{
		txRunner:     txRunner,
		saleRepo:     saleRepo,
		customerRepo: customerRepo,
		vatRateRepo:  vatRateRepo,
		settingRepo:  settingRepo,
		now:          time.Now,
	}
}

// CreateSale crea la vendita con le sue righe in una transazione.
// Gli imponibili di riga sono derivati da quantità × prezzo unitario netto
// meno lo sconto; l'IVA non viene mai memorizzata, si deriva dall'aliquota.
func (uc *SaleUseCase) CreateSale(ctx context.Context, structureID string, in dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	if in.CustomerID == "" || len(in.Rows) == 0 {
		return nil, domain.ErrInvalidInput
	}

	customer, err := uc.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	if customer.StructureID != structureID {
		return nil, domain.ErrForbidden
	}

	saleType := in.Type
	if saleType == "" {
		saleType = entity.SaleTypeSale
	}
	switch saleType {
	case entity.SaleTypeSale, entity.SaleTypeCreditNote, entity.SaleTypeDebitNote:
	default:
		return nil, fmt.Errorf("%w: tipo vendita %q", domain.ErrInvalidInput, saleType)
	}
	if saleType == entity.SaleTypeCreditNote && in.OriginalSaleID == "" {
		return nil, fmt.Errorf("%w: nota di credito senza vendita originale", domain.ErrInvalidInput)
	}

	now := uc.now()
	date := now
	if in.Date != "" {
		parsed, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: data %q", domain.ErrInvalidInput, in.Date)
		}
		date = parsed
	}

	// Validare aliquote e costruire le righe fuori dalla tx (sola lettura).
	rows := make([]*entity.SaleRow, 0, len(in.Rows))
	for _, r := range in.Rows {
		if r.Description == "" || !r.Quantity.GreaterThan(decimal.Zero) || r.VATRateID == "" {
			return nil, domain.ErrInvalidInput
		}
		rate, err := uc.vatRateRepo.GetByID(ctx, r.VATRateID)
		if err != nil {
			return nil, err
		}
		if rate == nil || rate.StructureID != structureID {
			return nil, fmt.Errorf("%w: aliquota IVA %s", domain.ErrNotFound, r.VATRateID)
		}
		if rate.PercentCents == 0 && rate.Nature == "" {
			return nil, fmt.Errorf("%w: aliquota zero senza natura", domain.ErrInvalidInput)
		}
		rows = append(rows, &entity.SaleRow{
			Description:          r.Description,
			Quantity:             r.Quantity,
			UnitPriceNetCents:    r.UnitPriceNetCents,
			TotalNetCents:        rowTotalNetCents(r),
			DiscountPercentCents: r.DiscountPercentCents,
			DiscountAmountCents:  r.DiscountAmountCents,
			VATRateID:            rate.ID,
			VATRate:              rate,
		})
	}

	prefix := in.Prefix
	if prefix == "" {
		if v, ok, err := uc.settingRepo.Get(ctx, structureID, entity.SettingDefaultPrefix); err != nil {
			return nil, err
		} else if ok {
			prefix = v
		}
	}

	sale := &entity.Sale{
		StructureID:             structureID,
		CustomerID:              in.CustomerID,
		ProgressivePrefix:       prefix,
		Date:                    date,
		Type:                    saleType,
		WithholdingTaxCents:     in.WithholdingTaxCents,
		WithholdingTaxRateCents: in.WithholdingTaxRateCents,
		WithholdingTaxType:      in.WithholdingTaxType,
		StampDutyCents:          in.StampDutyCents,
		StampDutyApplied:        in.StampDutyCents > 0,
		WelfareFundCents:        in.WelfareFundCents,
		WelfareFundRateCents:    in.WelfareFundRateCents,
		WelfareFundTaxableCents: in.WelfareFundTaxableCents,
		WelfareFundVATRateCents: in.WelfareFundVATRateCents,
		Causale:                 in.Causale,
		PaymentConditionSet:     in.PaymentMethod != "",
		PaymentMethod:           in.PaymentMethod,
		FirstInstallmentDueDays: in.FirstInstallmentDueDays,
		OriginalSaleID:          in.OriginalSaleID,
		Rows:                    rows,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	err = uc.txRunner.RunBilling(ctx, func(
		saleRepo repository.SaleRepository,
		_ repository.ElectronicInvoiceRepository,
		_ repository.SendAttemptRepository,
	) error {
		if err := saleRepo.Create(ctx, sale); err != nil {
			return err
		}
		for _, row := range rows {
			row.SaleID = sale.ID
			if err := saleRepo.CreateRow(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewSaleResponse(sale), nil
}

// rowTotalNetCents deriva l'imponibile di riga: quantità × prezzo unitario,
// meno sconto percentuale o assoluto.
func rowTotalNetCents(r dto.SaleRowRequest) int64 {
	gross := r.Quantity.Mul(decimal.NewFromInt(r.UnitPriceNetCents))
	if r.DiscountPercentCents > 0 {
		factor := decimal.NewFromInt(10000 - r.DiscountPercentCents).Div(decimal.NewFromInt(10000))
		gross = gross.Mul(factor)
	}
	total := gross.Round(0).IntPart()
	if r.DiscountAmountCents > 0 {
		total -= r.DiscountAmountCents
	}
	return total
}

// GetSale restituisce la vendita completa di righe.
func (uc *SaleUseCase) GetSale(ctx context.Context, structureID, id string) (*dto.SaleResponse, error) {
	sale, err := uc.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	if sale.StructureID != structureID {
		return nil, domain.ErrForbidden
	}
	return dto.NewSaleResponse(sale), nil
}

// ListSales lista paginata delle vendite della struttura.
func (uc *SaleUseCase) ListSales(ctx context.Context, structureID string, page dto.PageRequest) ([]*dto.SaleResponse, error) {
	page.DefaultPage()
	sales, err := uc.saleRepo.ListByStructure(ctx, structureID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.SaleResponse, 0, len(sales))
	for _, s := range sales {
		out = append(out, dto.NewSaleResponse(s))
	}
	return out, nil
}
