package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

var _ repository.TenantSettingRepository = (*TenantSettingRepo)(nil)

// TenantSettingRepo implementazione key-value di TenantSettingRepository.
type TenantSettingRepo struct {
	q Querier
}

// NewTenantSettingRepository costruisce l'adattatore. Passare pool o tx (Querier).
func NewTenantSettingRepository(q Querier) *TenantSettingRepo {
	return &TenantSettingRepo{q: q}
}

// Get restituisce il valore e true se la chiave esiste per la struttura.
func (r *TenantSettingRepo) Get(ctx context.Context, structureID, key string) (string, bool, error) {
	query := `SELECT value FROM tenant_settings WHERE structure_id = $1 AND key = $2`
	var value string
	err := r.q.QueryRow(ctx, query, structureID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get tenant setting: %w", err)
	}
	return value, true, nil
}

// Set crea o aggiorna l'impostazione (upsert su structure_id+key).
func (r *TenantSettingRepo) Set(ctx context.Context, structureID, key, value string) error {
	query := `
		INSERT INTO tenant_settings (id, structure_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (structure_id, key) DO UPDATE SET value = $4, updated_at = NOW()`
	_, err := r.q.Exec(ctx, query, uuid.New().String(), structureID, key, value)
	if err != nil {
		return fmt.Errorf("set tenant setting: %w", err)
	}
	return nil
}

// GetBool interpreta "true"/"1" come vero; default se la chiave manca.
func (r *TenantSettingRepo) GetBool(ctx context.Context, structureID, key string, def bool) (bool, error) {
	value, ok, err := r.Get(ctx, structureID, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return value == "true" || value == "1", nil
}
