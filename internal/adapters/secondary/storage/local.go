package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName construit "<unix-millis>-<8 hex>-<nom nettoyé>".
// Le préfixe horodaté garde l'ordre de dépôt, le hex évite les collisions.
func ObjectName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "upload"
	}
	if len(base) > 80 {
		base = base[len(base)-80:]
	}
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), short, base)
}

// LocalStore écrit les uploads sur disque (équivalent du dossier uploads/).
type LocalStore struct {
	dir      string
	maxBytes int64
}

func NewLocalStore(dir string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, maxBytes: maxBytes}, nil
}

var _ ports.MediaStorage = (*LocalStore)(nil)

func (s *LocalStore) Stage(ctx context.Context, up ports.MediaUpload) (string, error) {
	name := ObjectName(up.Filename, time.Now())
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}

	src := up.Body
	if s.maxBytes > 0 {
		src = io.LimitReader(up.Body, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = domain.ErrMediaTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, domain.ErrMediaTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return name, nil
}

func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	if ref == "" || ref != filepath.Base(ref) {
		return fmt.Errorf("storage: invalid ref %q", ref)
	}
	if err := os.Remove(filepath.Join(s.dir, ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}

// Handler sert les fichiers stockés. Monté sous /uploads/ (préfixe déjà retiré).
func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.dir))
}
