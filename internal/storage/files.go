package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
)

// Files owns the three auxiliary directories.
type Files struct {
	ImagesDir       string
	TextsDir        string
	LinkPreviewsDir string

	now func() time.Time
}

func NewFiles(imagesDir, textsDir, linkPreviewsDir string) *Files {
	return &Files{
		ImagesDir:       imagesDir,
		TextsDir:        textsDir,
		LinkPreviewsDir: linkPreviewsDir,
		now:             time.Now,
	}
}

// Ensure creates any missing directory.
func (f *Files) Ensure() error {
	for _, dir := range []string{f.ImagesDir, f.TextsDir, f.LinkPreviewsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (f *Files) Dir(d types.Dir) string {
	switch d {
	case types.DirImages:
		return f.ImagesDir
	case types.DirTexts:
		return f.TextsDir
	case types.DirLinkPreviews:
		return f.LinkPreviewsDir
	}
	return ""
}

func (f *Files) Path(ref types.FileRef) string {
	return filepath.Join(f.Dir(ref.Dir), ref.Name)
}

func (f *Files) Exists(ref types.FileRef) bool {
	return utils.FileExists(f.Path(ref))
}

// Remove deletes ref. A file that is already gone is not an error.
func (f *Files) Remove(ref types.FileRef) error {
	return utils.RemoveFile(f.Path(ref))
}

// List returns the names of regular files in d. A missing directory is
// empty. Dotfiles are skipped; they are in-flight atomic writes.
func (f *Files) List(d types.Dir) ([]string, error) {
	entries, err := os.ReadDir(f.Dir(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ImageFilename builds "{epochMillis}_{id8}.{ext}".
func (f *Files) ImageFilename(id, ext string) string {
	return fmt.Sprintf("%d_%s.%s", f.now().UnixMilli(), utils.ShortID(id, 8), strings.TrimPrefix(ext, "."))
}

// SaveImage writes data under a fresh image filename and returns the name.
func (f *Files) SaveImage(id, ext string, data []byte) (string, error) {
	name := f.ImageFilename(id, ext)
	if err := utils.WriteFileAtomic(filepath.Join(f.ImagesDir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return name, nil
}

// WriteImage replaces an existing image file, used when healing restores
// content under the name the record already holds.
func (f *Files) WriteImage(name string, data []byte) error {
	return utils.WriteFileAtomic(filepath.Join(f.ImagesDir, name), data, 0644)
}

// CopyFile copies src into the images directory as name.
func (f *Files) CopyFile(src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return f.WriteImage(name, data)
}

func (f *Files) SaveText(id, text string) error {
	path := filepath.Join(f.TextsDir, types.TextFilename(id))
	if err := utils.WriteFileAtomic(path, []byte(text), 0600); err != nil {
		return fmt.Errorf("failed to save text: %w", err)
	}
	return nil
}

func (f *Files) ReadText(id string) (string, error) {
	data, err := os.ReadFile(filepath.Join(f.TextsDir, types.TextFilename(id)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveIcon writes a link preview named after the owning item's id.
func (f *Files) SaveIcon(id, ext string, data []byte) (string, error) {
	name := id + "." + strings.TrimPrefix(ext, ".")
	if err := utils.WriteFileAtomic(filepath.Join(f.LinkPreviewsDir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save icon: %w", err)
	}
	return name, nil
}
