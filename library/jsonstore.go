package library

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	jsoniter "github.com/json-iterator/go"
)

// codec sorts map keys so current_loans is written deterministically.
var codec = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	BooksFile   = "books.json"
	MembersFile = "members.json"
)

// JSONFiles persists books and members as two JSON documents. Each document
// is an array in insertion order. Documents written as objects keyed by ISBN
// or member ID are also read, with keys taken in sorted order.
type JSONFiles struct {
	BooksPath   string
	MembersPath string
}

// NewJSONFiles uses books.json and members.json inside dir.
func NewJSONFiles(dir string) *JSONFiles {
	return &JSONFiles{
		BooksPath:   filepath.Join(dir, BooksFile),
		MembersPath: filepath.Join(dir, MembersFile),
	}
}

// legacyMember accepts the borrowed_books key used by older member documents.
type legacyMember struct {
	Member
	BorrowedBooks map[string]Date `json:"borrowed_books"`
}

func (p *JSONFiles) Load() (*Snapshot, error) {
	snap := &Snapshot{}

	books, err := readDoc[*Book](p.BooksPath)
	if err != nil {
		return nil, err
	}
	snap.Books = books

	members, err := readDoc[*legacyMember](p.MembersPath)
	if err != nil {
		return nil, err
	}
	for _, lm := range members {
		m := lm.Member
		if m.CurrentLoans == nil {
			m.CurrentLoans = lm.BorrowedBooks
		}
		snap.Members = append(snap.Members, &m)
	}
	return snap, nil
}

// Save writes both documents to temp files before renaming either, so an
// encode or write failure leaves the previous pair untouched.
func (p *JSONFiles) Save(s *Snapshot) error {
	books := s.Books
	if books == nil {
		books = []*Book{}
	}
	members := s.Members
	if members == nil {
		members = []*Member{}
	}

	booksTmp, err := stageDoc(p.BooksPath, books)
	if err != nil {
		return err
	}
	defer os.Remove(booksTmp)
	membersTmp, err := stageDoc(p.MembersPath, members)
	if err != nil {
		return err
	}
	defer os.Remove(membersTmp)

	if err := os.Rename(booksTmp, p.BooksPath); err != nil {
		return fmt.Errorf("replace %s: %w", p.BooksPath, err)
	}
	if err := os.Rename(membersTmp, p.MembersPath); err != nil {
		return fmt.Errorf("replace %s: %w", p.MembersPath, err)
	}
	return nil
}

// readDoc decodes an array or keyed-object document. A missing or empty file
// is an empty document.
func readDoc[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '{' {
		var keyed map[string]T
		if err := codec.Unmarshal(data, &keyed); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		out := make([]T, 0, len(keys))
		for _, k := range keys {
			out = append(out, keyed[k])
		}
		return out, nil
	}

	var out []T
	if err := codec.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// stageDoc encodes v into a synced temp file next to path and returns its
// name. The caller renames it into place or removes it.
func stageDoc(path string, v any) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	data, err := codec.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return tmp.Name(), nil
}
