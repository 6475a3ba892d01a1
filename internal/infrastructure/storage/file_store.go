package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const tempPrefix = ".tmp-"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// FileStore guarda los artefactos bajo Root. Cada escritura es atómica:
// archivo temporal en el mismo directorio, fsync y rename.
type FileStore struct {
	Root string
}

// NewFileStore construye el almacén; crea el directorio raíz si falta.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("directorio de artefactos vacío")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("crear %s: %w", root, err)
	}
	return &FileStore{Root: root}, nil
}

// Sanitize deja solo [A-Za-z0-9_-] en un componente de ruta.
func Sanitize(component string) string {
	s := unsafeChars.ReplaceAllString(strings.TrimSpace(component), "_")
	if s == "" {
		return "_"
	}
	return s
}

// Write escribe data en Root/dir.../name y devuelve la ruta relativa a Root y
// el SHA-256 en hex. El nombre conserva su extensión.
func (s *FileStore) Write(ctx context.Context, dir []string, name string, data []byte) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	parts := make([]string, 0, len(dir)+1)
	for _, d := range dir {
		parts = append(parts, Sanitize(d))
	}
	ext := filepath.Ext(name)
	parts = append(parts, Sanitize(strings.TrimSuffix(name, ext))+ext)
	rel := filepath.Join(parts...)
	full := filepath.Join(s.Root, rel)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", "", fmt.Errorf("crear directorio: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), tempPrefix+"*")
	if err != nil {
		return "", "", fmt.Errorf("archivo temporal: %w", err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", "", fmt.Errorf("escribir %s: %w", rel, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", "", fmt.Errorf("fsync %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("cerrar %s: %w", rel, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return "", "", fmt.Errorf("renombrar %s: %w", rel, err)
	}
	ok = true

	sum := sha256.Sum256(data)
	return filepath.ToSlash(rel), hex.EncodeToString(sum[:]), nil
}

// Read lee un artefacto por su ruta relativa. Rutas que salen de Root se rechazan.
func (s *FileStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (s *FileStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("ruta fuera del almacén: %s", path)
	}
	return filepath.Join(s.Root, clean), nil
}

// SweepTemp borra temporales huérfanos (escrituras interrumpidas) más viejos
// que olderThan. Devuelve cuántos borró.
func (s *FileStore) SweepTemp(ctx context.Context, olderThan time.Duration) (int, error) {
	limit := time.Now().Add(-olderThan)
	removed := 0
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(limit) {
			if err := os.Remove(p); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
