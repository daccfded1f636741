package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// Service moves filed documents inside one filesystem tree. A move never
// overwrites: an occupied target path is an error, which keeps filing
// at-most-once per document.
type Service struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

func (s *Service) Move(ctx context.Context, sourcePath, targetPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(targetPath); err == nil {
		return domain.WrapError(domain.ErrInvalidInput, "move document", fmt.Errorf("target exists: %s", targetPath))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat target: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	err := os.Rename(sourcePath, targetPath)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return fmt.Errorf("rename document: %w", err)
	}
	// Rename across filesystems fails; fall back to copy and remove.
	if err := copyFile(sourcePath, targetPath); err != nil {
		return err
	}
	if err := os.Remove(sourcePath); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// ListTree reads the archive directory layout as the category set: top-level
// directories are categories, their child directories subcategories. Hidden
// directories are ignored.
func (s *Service) ListTree(ctx context.Context, root string) ([]domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read category tree: %w", err)
	}

	categories := make([]domain.Category, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		cat := domain.Category{Name: entry.Name()}
		children, err := os.ReadDir(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read subcategories of %s: %w", entry.Name(), err)
		}
		for _, child := range children {
			if child.IsDir() && !strings.HasPrefix(child.Name(), ".") {
				cat.Subcategories = append(cat.Subcategories, child.Name())
			}
		}
		sort.Strings(cat.Subcategories)
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func copyFile(sourcePath, targetPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(targetPath)
		return fmt.Errorf("copy document: %w", err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return fmt.Errorf("sync target: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close target: %w", err)
	}
	return nil
}
