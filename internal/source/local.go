package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Local reads transcripts from a directory tree.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Name() string { return "local" }

// List walks the directory and returns supported files ordered by path.
func (l *Local) List(ctx context.Context) ([]Document, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("stat source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source dir %s is not a directory", l.dir)
	}

	var docs []Document
	err = filepath.WalkDir(l.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !Supported(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.dir, p)
		if err != nil {
			return err
		}
		docs = append(docs, Document{
			ID:         filepath.ToSlash(rel),
			Name:       d.Name(),
			ModifiedAt: fi.ModTime(),
			Size:       fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source dir: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (l *Local) Read(_ context.Context, doc Document) (string, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, filepath.FromSlash(doc.ID)))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", doc.ID, err)
	}
	return decode(doc.Name, data)
}

// ReadFile reads a single transcript file outside any source directory.
func ReadFile(p string) (Document, string, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return Document{}, "", fmt.Errorf("stat %s: %w", p, err)
	}
	doc := Document{ID: p, Name: filepath.Base(p), ModifiedAt: fi.ModTime(), Size: fi.Size()}
	data, err := os.ReadFile(p)
	if err != nil {
		return doc, "", fmt.Errorf("read %s: %w", p, err)
	}
	text, err := decode(doc.Name, data)
	return doc, text, err
}
