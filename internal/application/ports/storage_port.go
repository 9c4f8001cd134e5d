package ports

import "context"

// Storage definisce la porta di uscita verso lo storage file, indirizzato per
// nome disco + path relativo. Qualunque adattatore (filesystem locale, S3,
// mock nei test) deve implementare questa interfaccia.
//
// Garanzia richiesta dal motore di conservazione: AllFiles restituisce un
// ordinamento stabile e deterministico — l'hash di integrità è calcolato
// nell'ordine di enumerazione.
type Storage interface {
	Put(ctx context.Context, disk, path string, content []byte) error
	Get(ctx context.Context, disk, path string) ([]byte, error)
	Exists(ctx context.Context, disk, path string) (bool, error)
	Delete(ctx context.Context, disk, path string) error
	// DeleteDirectory elimina ricorsivamente la directory e il suo contenuto.
	DeleteDirectory(ctx context.Context, disk, path string) error
	// AllFiles elenca ricorsivamente i file sotto path, ordinati.
	AllFiles(ctx context.Context, disk, path string) ([]string, error)
	// Files elenca i soli file diretti della directory, ordinati.
	Files(ctx context.Context, disk, path string) ([]string, error)
	Size(ctx context.Context, disk, path string) (int64, error)
}
