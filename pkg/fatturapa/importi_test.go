package fatturapa_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

// ──────────────────────────────────────────────────────────────────────────────
// Conversioni centesimi ↔ euro. Gli importi fiscali viaggiano nel dominio come
// int64 in centesimi: questi test fissano il comportamento al confine XML/PDF.
// ──────────────────────────────────────────────────────────────────────────────

func TestEuroString_FormattaDueDecimali(t *testing.T) {
	assert.Equal(t, "12.34", fatturapa.EuroString(1234))
	assert.Equal(t, "0.00", fatturapa.EuroString(0))
	assert.Equal(t, "0.01", fatturapa.EuroString(1))
	assert.Equal(t, "100.00", fatturapa.EuroString(10000))
	assert.Equal(t, "-5.00", fatturapa.EuroString(-500))
	assert.Equal(t, "1234567.89", fatturapa.EuroString(123456789))
}

func TestRateString_AliquotaInCentesimiDiPunto(t *testing.T) {
	assert.Equal(t, "22.00", fatturapa.RateString(2200))
	assert.Equal(t, "10.00", fatturapa.RateString(1000))
	assert.Equal(t, "4.00", fatturapa.RateString(400))
	assert.Equal(t, "0.00", fatturapa.RateString(0))
}

func TestDecimalToCents_ArrotondaHalfUp(t *testing.T) {
	assert.Equal(t, int64(1235), fatturapa.DecimalToCents(decimal.RequireFromString("12.345")))
	assert.Equal(t, int64(1234), fatturapa.DecimalToCents(decimal.RequireFromString("12.344")))
	assert.Equal(t, int64(0), fatturapa.DecimalToCents(decimal.Zero))
}

func TestCentsToDecimal_RoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 1234, 999999} {
		d := fatturapa.CentsToDecimal(cents)
		assert.Equal(t, cents, fatturapa.DecimalToCents(d), "round-trip per %d centesimi", cents)
	}
}

// ApplyRate è il calcolo IVA di riga: imponibile × aliquota, arrotondato alla
// seconda cifra. 100.00 € al 22% → 22.00 €.
func TestApplyRate_CalcoloIVA(t *testing.T) {
	assert.Equal(t, int64(2200), fatturapa.ApplyRate(10000, 2200))
	assert.Equal(t, int64(1000), fatturapa.ApplyRate(10000, 1000))
	assert.Equal(t, int64(0), fatturapa.ApplyRate(10000, 0))
	// 9.99 € al 22% = 2.1978 → 2.20
	assert.Equal(t, int64(220), fatturapa.ApplyRate(999, 2200))
	// 0.01 € al 22% = 0.0022 → 0.00
	assert.Equal(t, int64(0), fatturapa.ApplyRate(1, 2200))
}
