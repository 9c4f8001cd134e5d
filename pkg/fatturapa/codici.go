package fatturapa

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidatePartitaIVA valida la partita IVA italiana (11 cifre) con il
// controllo di Luhn previsto dall'art. 35 DPR 633/72. Accetta il numero con
// o senza prefisso "IT" e con eventuali spazi.
func ValidatePartitaIVA(piva string) error {
	digits := extractDigits(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(piva)), "IT"))
	if len(digits) != 11 {
		return fmt.Errorf("partita IVA: attese 11 cifre, trovate %d", len(digits))
	}
	var sum int
	for i, d := range digits {
		n := int(d - '0')
		if i%2 == 1 { // posizioni pari (1-based): raddoppio con riporto
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
	}
	if sum%10 != 0 {
		return fmt.Errorf("partita IVA %s: cifra di controllo non valida", string(digits))
	}
	return nil
}

// Tabelle di conversione per il carattere di controllo del codice fiscale
// (DM 23/12/1976). I valori dispari sono per i caratteri in posizione
// dispari (1-based), i pari per quelli in posizione pari.
var cfOddValues = map[byte]int{
	'0': 1, '1': 0, '2': 5, '3': 7, '4': 9, '5': 13, '6': 15, '7': 17, '8': 19, '9': 21,
	'A': 1, 'B': 0, 'C': 5, 'D': 7, 'E': 9, 'F': 13, 'G': 15, 'H': 17, 'I': 19, 'J': 21,
	'K': 2, 'L': 4, 'M': 18, 'N': 20, 'O': 11, 'P': 3, 'Q': 6, 'R': 8, 'S': 12, 'T': 14,
	'U': 16, 'V': 10, 'W': 22, 'X': 25, 'Y': 24, 'Z': 23,
}

func cfEvenValue(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	return int(c - 'A')
}

// ValidateCodiceFiscale valida il codice fiscale di persona fisica (16
// caratteri) verificando il carattere di controllo. Per i soggetti diversi
// dalle persone fisiche il codice fiscale è numerico (11 cifre) e viene
// validato come partita IVA.
func ValidateCodiceFiscale(cf string) error {
	code := strings.ToUpper(strings.TrimSpace(cf))
	if len(code) == 11 {
		return ValidatePartitaIVA(code)
	}
	if len(code) != 16 {
		return fmt.Errorf("codice fiscale: attesi 16 caratteri, trovati %d", len(code))
	}
	var sum int
	for i := 0; i < 15; i++ {
		c := code[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') {
			return fmt.Errorf("codice fiscale: carattere non valido in posizione %d", i+1)
		}
		if i%2 == 0 { // posizione dispari 1-based
			sum += cfOddValues[c]
		} else {
			sum += cfEvenValue(c)
		}
	}
	expected := byte('A' + sum%26)
	if code[15] != expected {
		return fmt.Errorf("codice fiscale %s: carattere di controllo non valido", code)
	}
	return nil
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
