package billing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

// ── AssignProgressive ─────────────────────────────────────────────────────────

func TestAssignProgressive_PrimoNumeroDellAnno(t *testing.T) {
	repo := &fakeSaleRepo{maxProgressive: 0}
	svc := billing.NewNumberingService(repo)
	sale := &entity.Sale{
		ID:                "sale-1",
		StructureID:       "str-1",
		ProgressivePrefix: "FT-",
		Date:              time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}

	err := svc.AssignProgressive(context.Background(), repo, sale, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, sale.ProgressiveValue)
	assert.Equal(t, 2026, sale.Year)
	assert.Equal(t, "FT-0001", sale.ProgressiveNumber())
	assert.Equal(t, 1, repo.lockCalls)
}

func TestAssignProgressive_ProssimoNumero(t *testing.T) {
	repo := &fakeSaleRepo{maxProgressive: 41}
	svc := billing.NewNumberingService(repo)
	sale := &entity.Sale{
		ID:                "sale-2",
		ProgressivePrefix: "FT-",
		Date:              time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	err := svc.AssignProgressive(context.Background(), repo, sale, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 42, sale.ProgressiveValue)
	assert.Equal(t, "FT-0042", sale.ProgressiveNumber())
}

func TestAssignProgressive_VenditaGiaNumerata(t *testing.T) {
	repo := &fakeSaleRepo{maxProgressive: 10}
	svc := billing.NewNumberingService(repo)
	sale := &entity.Sale{
		ID:               "sale-3",
		ProgressiveValue: 7,
		Date:             time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	err := svc.AssignProgressive(context.Background(), repo, sale, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	// Il numero esistente non viene toccato e il lock non viene mai acquisito
	assert.Equal(t, 7, sale.ProgressiveValue)
	assert.Equal(t, 0, repo.lockCalls)
}

func TestAssignProgressive_DataZeroUsaOggi(t *testing.T) {
	repo := &fakeSaleRepo{maxProgressive: 0}
	svc := billing.NewNumberingService(repo)
	sale := &entity.Sale{ID: "sale-4", ProgressivePrefix: "FT-"}
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	err := svc.AssignProgressive(context.Background(), repo, sale, now)
	require.NoError(t, err)

	assert.Equal(t, 2026, sale.Year)
	assert.Equal(t, now, sale.Date)
}

// serializedSaleRepo riproduce la semantica del SELECT ... FOR UPDATE: ogni
// chiamata osserva il massimo committato dalla precedente, una sola volta.
type serializedSaleRepo struct {
	repository.SaleRepository

	mu  sync.Mutex
	max int
}

func (f *serializedSaleRepo) MaxProgressiveForUpdate(_ context.Context, _ int, _, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur := f.max
	f.max++
	return cur, nil
}

func TestAssignProgressive_EsclusivitaConcorrente(t *testing.T) {
	repo := &serializedSaleRepo{}
	svc := billing.NewNumberingService(repo)

	const n = 32
	values := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sale := &entity.Sale{
				ID:                fmt.Sprintf("sale-%d", i),
				StructureID:       "str-1",
				ProgressivePrefix: "FT-",
				Date:              time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
			}
			if err := svc.AssignProgressive(context.Background(), repo, sale, time.Now()); err != nil {
				t.Errorf("assegnazione concorrente %d: %v", i, err)
				return
			}
			values[i] = sale.ProgressiveValue
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool, n)
	for _, v := range values {
		assert.False(t, seen[v], "numero progressivo %d assegnato due volte", v)
		seen[v] = true
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, n)
	}
}

func TestAssignProgressive_ErroreRepo(t *testing.T) {
	repoErr := errors.New("deadlock detected")
	repo := &fakeSaleRepo{maxProgressiveErr: repoErr}
	svc := billing.NewNumberingService(repo)
	sale := &entity.Sale{
		ID:   "sale-5",
		Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	err := svc.AssignProgressive(context.Background(), repo, sale, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, repoErr)
	assert.False(t, sale.HasProgressiveNumber())
}

// ── ValidateSequenceIntegrity ─────────────────────────────────────────────────

func TestValidateSequenceIntegrity(t *testing.T) {
	tests := []struct {
		name       string
		values     []int
		intact     bool
		gaps       []billing.SequenceGap
		duplicates []int
		maxValue   int
	}{
		{
			name:     "sequenza vuota intatta",
			values:   nil,
			intact:   true,
			maxValue: 0,
		},
		{
			name:     "sequenza completa 1..5",
			values:   []int{1, 2, 3, 4, 5},
			intact:   true,
			maxValue: 5,
		},
		{
			name:     "buco singolo",
			values:   []int{1, 2, 4, 5},
			intact:   false,
			gaps:     []billing.SequenceGap{{From: 3, To: 3}},
			maxValue: 5,
		},
		{
			name:     "buco iniziale e intervallo",
			values:   []int{3, 7},
			intact:   false,
			gaps:     []billing.SequenceGap{{From: 1, To: 2}, {From: 4, To: 6}},
			maxValue: 7,
		},
		{
			name:       "duplicato",
			values:     []int{1, 2, 2, 3},
			intact:     false,
			duplicates: []int{2},
			maxValue:   3,
		},
		{
			name:       "buco e duplicato insieme",
			values:     []int{1, 1, 4},
			intact:     false,
			gaps:       []billing.SequenceGap{{From: 2, To: 3}},
			duplicates: []int{1},
			maxValue:   4,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeSaleRepo{progressiveValues: tc.values}
			svc := billing.NewNumberingService(repo)

			report, err := svc.ValidateSequenceIntegrity(context.Background(), 2026, "str-1")
			require.NoError(t, err)

			assert.Equal(t, 2026, report.Year)
			assert.Equal(t, len(tc.values), report.Count)
			assert.Equal(t, tc.intact, report.Intact)
			assert.Equal(t, tc.gaps, report.Gaps)
			assert.Equal(t, tc.duplicates, report.Duplicates)
			assert.Equal(t, tc.maxValue, report.MaxValue)
		})
	}
}
