package fatturapa_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

func TestNewTransmissionID_LunghezzaEFormato(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 45, 0, time.UTC)
	id := fatturapa.NewTransmissionID(now)

	require.Len(t, id, fatturapa.TransmissionIDLength)
	// Prefisso: ultime 5 cifre del timestamp 20260315103045 → "03045"
	assert.Equal(t, "03045", id[:5])
	// Suffisso: 5 caratteri esadecimali maiuscoli
	for _, r := range id[5:] {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F'),
			"carattere %c non esadecimale maiuscolo in %s", r, id)
	}
}

// Chiamate nello stesso istante devono comunque divergere grazie al suffisso
// casuale: il vincolo UNIQUE in DB resta la garanzia definitiva, ma le
// collisioni in memoria devono restare l'eccezione.
func TestNewTransmissionID_SuffissoCasualeDiverso(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 45, 0, time.UTC)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := fatturapa.NewTransmissionID(now)
		assert.False(t, seen[id], "identificativo duplicato %s", id)
		seen[id] = true
	}
}
