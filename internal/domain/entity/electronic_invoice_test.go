package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Macchina a stati SDI: draft → generated → sent → delivered → accepted|rejected.
// Monotona, mai regressioni; rejected raggiungibile da sent e delivered.
// ──────────────────────────────────────────────────────────────────────────────

func TestCanTransitionSDI_PercorsoFelice(t *testing.T) {
	assert.True(t, entity.CanTransitionSDI(entity.SDIStatusDraft, entity.SDIStatusGenerated))
	assert.True(t, entity.CanTransitionSDI(entity.SDIStatusGenerated, entity.SDIStatusSent))
	assert.True(t, entity.CanTransitionSDI(entity.SDIStatusSent, entity.SDIStatusDelivered))
	assert.True(t, entity.CanTransitionSDI(entity.SDIStatusDelivered, entity.SDIStatusAccepted))
}

func TestCanTransitionSDI_ScartoDaSentEDelivered(t *testing.T) {
	assert.True(t, entity.CanTransitionSDI(entity.SDIStatusSent, entity.SDIStatusRejected))
	assert.True(t, entity.CanTransitionSDI(entity.SDIStatusDelivered, entity.SDIStatusRejected))
	// Mai prima dell'invio
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusDraft, entity.SDIStatusRejected))
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusGenerated, entity.SDIStatusRejected))
}

func TestCanTransitionSDI_NessunaRegressione(t *testing.T) {
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusSent, entity.SDIStatusGenerated))
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusDelivered, entity.SDIStatusSent))
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusGenerated, entity.SDIStatusDraft))
}

func TestCanTransitionSDI_NessunSalto(t *testing.T) {
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusDraft, entity.SDIStatusSent))
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusGenerated, entity.SDIStatusDelivered))
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusSent, entity.SDIStatusAccepted))
}

func TestCanTransitionSDI_StatiTerminali(t *testing.T) {
	for _, terminal := range []string{entity.SDIStatusAccepted, entity.SDIStatusRejected} {
		for _, to := range []string{
			entity.SDIStatusDraft, entity.SDIStatusGenerated, entity.SDIStatusSent,
			entity.SDIStatusDelivered, entity.SDIStatusAccepted, entity.SDIStatusRejected,
		} {
			assert.False(t, entity.CanTransitionSDI(terminal, to),
				"da %s non deve essere ammessa alcuna transizione (verso %s)", terminal, to)
		}
	}
}

func TestCanTransitionSDI_StessoStatoEStatiIgnoti(t *testing.T) {
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusSent, entity.SDIStatusSent))
	assert.False(t, entity.CanTransitionSDI("boh", entity.SDIStatusSent))
	assert.False(t, entity.CanTransitionSDI(entity.SDIStatusSent, "boh"))
}

func TestIsTerminalSDIStatus(t *testing.T) {
	assert.True(t, entity.IsTerminalSDIStatus(entity.SDIStatusAccepted))
	assert.True(t, entity.IsTerminalSDIStatus(entity.SDIStatusRejected))
	assert.False(t, entity.IsTerminalSDIStatus(entity.SDIStatusDraft))
	assert.False(t, entity.IsTerminalSDIStatus(entity.SDIStatusDelivered))
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariante di immutabilità XML: bloccato da sent in poi.
// ──────────────────────────────────────────────────────────────────────────────

func TestXMLLocked(t *testing.T) {
	cases := []struct {
		status string
		locked bool
	}{
		{entity.SDIStatusDraft, false},
		{entity.SDIStatusGenerated, false},
		{entity.SDIStatusSent, true},
		{entity.SDIStatusDelivered, true},
		{entity.SDIStatusAccepted, true},
		{entity.SDIStatusRejected, true},
	}
	for _, c := range cases {
		inv := &entity.ElectronicInvoice{SDIStatus: c.status}
		assert.Equal(t, c.locked, inv.XMLLocked(), "stato %s", c.status)
	}
}

func TestFlagCicloVita(t *testing.T) {
	now := time.Now()
	inv := &entity.ElectronicInvoice{}
	assert.False(t, inv.IsPreserved())
	assert.False(t, inv.IsAnonymized())

	inv.PreservedAt = &now
	inv.AnonymizedAt = &now
	assert.True(t, inv.IsPreserved())
	assert.True(t, inv.IsAnonymized())
}
