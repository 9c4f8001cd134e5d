package fatturapa

import (
	"github.com/shopspring/decimal"
)

// Gli importi fiscali viaggiano nel dominio come centesimi interi (int64):
// niente float, niente perdita di precisione. La conversione a euro con due
// decimali avviene solo qui, al confine XML/PDF.

var cento = decimal.NewFromInt(100)

// CentsToDecimal converte centesimi in un decimal in euro (1234 → 12.34).
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(cento)
}

// EuroString formatta centesimi come stringa euro a due decimali ("12.34"),
// il formato richiesto dagli elementi importo dello schema FatturaPA.
func EuroString(cents int64) string {
	return CentsToDecimal(cents).StringFixed(2)
}

// DecimalToCents converte un importo in euro nei centesimi equivalenti,
// arrotondando alla seconda cifra decimale (half-up, come da prassi fiscale).
func DecimalToCents(d decimal.Decimal) int64 {
	return d.Round(2).Mul(cento).IntPart()
}

// RateString formatta un'aliquota espressa in centesimi di punto percentuale
// (2200 → "22.00") per AliquotaIVA e AliqRitenuta.
func RateString(rateCents int64) string {
	return decimal.NewFromInt(rateCents).Div(cento).StringFixed(2)
}

// ApplyRate applica un'aliquota (centesimi di punto) a un imponibile in
// centesimi e restituisce l'imposta in centesimi, arrotondata a 2 decimali.
func ApplyRate(baseCents, rateCents int64) int64 {
	base := CentsToDecimal(baseCents)
	rate := decimal.NewFromInt(rateCents).Div(cento).Div(cento)
	return DecimalToCents(base.Mul(rate))
}
