// Package storage implementa la porta Storage su filesystem locale.
package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
)

var _ ports.Storage = (*LocalStorage)(nil)

// LocalStorage archivia i file sotto una radice per disco. L'enumerazione è
// lessicografica, quindi deterministica: requisito dell'hash di conservazione.
type LocalStorage struct {
	roots map[string]string // nome disco → directory radice
}

// NewLocalStorage costruisce lo storage con la mappa dischi della configurazione.
func NewLocalStorage(roots map[string]string) *LocalStorage {
	return &LocalStorage{roots: roots}
}

// resolve traduce (disk, path) nel path assoluto, rifiutando traversal fuori radice.
func (s *LocalStorage) resolve(disk, path string) (string, error) {
	root, ok := s.roots[disk]
	if !ok {
		return "", fmt.Errorf("storage: disco sconosciuto %q", disk)
	}
	full := filepath.Join(root, filepath.Clean("/"+path))
	if !strings.HasPrefix(full, filepath.Clean(root)) {
		return "", fmt.Errorf("storage: path fuori dalla radice del disco: %s", path)
	}
	return full, nil
}

func (s *LocalStorage) Put(_ context.Context, disk, path string, content []byte) error {
	full, err := s.resolve(disk, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

func (s *LocalStorage) Get(_ context.Context, disk, path string) ([]byte, error) {
	full, err := s.resolve(disk, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

func (s *LocalStorage) Exists(_ context.Context, disk, path string) (bool, error) {
	full, err := s.resolve(disk, path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStorage) Delete(_ context.Context, disk, path string) error {
	full, err := s.resolve(disk, path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

func (s *LocalStorage) DeleteDirectory(_ context.Context, disk, path string) error {
	full, err := s.resolve(disk, path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("storage: delete directory %s: %w", path, err)
	}
	return nil
}

// AllFiles elenca ricorsivamente i file sotto path come path relativi al
// disco, in ordine lessicografico.
func (s *LocalStorage) AllFiles(_ context.Context, disk, path string) ([]string, error) {
	full, err := s.resolve(disk, path)
	if err != nil {
		return nil, err
	}
	root := s.roots[disk]
	var files []string
	err = filepath.WalkDir(full, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: walk %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}

func (s *LocalStorage) Files(_ context.Context, disk, path string) ([]string, error) {
	full, err := s.resolve(disk, path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: readdir %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.ToSlash(filepath.Join(path, e.Name())))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *LocalStorage) Size(_ context.Context, disk, path string) (int64, error) {
	full, err := s.resolve(disk, path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info.Size(), nil
}
