package repository

import "context"

// TenantSettingRepository definisce la porta per le impostazioni key-value.
type TenantSettingRepository interface {
	// Get restituisce il valore e true se la chiave esiste per la struttura.
	Get(ctx context.Context, structureID, key string) (string, bool, error)
	Set(ctx context.Context, structureID, key, value string) error
	// GetBool interpreta "true"/"1" come vero; default se la chiave manca.
	GetBool(ctx context.Context, structureID, key string, def bool) (bool, error)
}
