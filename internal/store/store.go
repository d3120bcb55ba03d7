// Package store groups the persisted index files: the SQLite document store,
// the Bleve keyword index and the vector file.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/tradeidea/internal/keyword"
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/storage"
	"github.com/hyperjump/tradeidea/internal/vector"
)

// Layout of an index directory.
const (
	DocumentsFile = "documents.db"
	KeywordDir    = "keyword.bleve"
	VectorsFile   = "vectors.bin"
)

// ErrNotBuilt is returned by Open when the directory holds no index.
var ErrNotBuilt = errors.New("index has not been built")

// Store is an open index directory.
type Store struct {
	dir      string
	Storage  *storage.SQLiteStorage
	Keyword  *keyword.BleveIndex
	Vectors  *vector.MemoryIndex
	readOnly bool
}

// Exists reports whether dir holds a built index.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, DocumentsFile))
	return err == nil && info.Mode().IsRegular()
}

// Create makes a fresh, empty index in dir for vectors of dims dimensions.
func Create(dir string, dims int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	return open(dir, dims, false)
}

// Open opens the index in dir and loads its vectors into memory.
func Open(dir string, dims int) (*Store, error) {
	if !Exists(dir) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotBuilt)
	}
	s, err := open(dir, dims, true)
	if err != nil {
		return nil, err
	}
	if err := s.Vectors.Load(filepath.Join(dir, VectorsFile)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	return s, nil
}

func open(dir string, dims int, readOnly bool) (*Store, error) {
	vec, err := vector.NewMemoryIndex(dims)
	if err != nil {
		return nil, err
	}
	db, err := storage.NewSQLiteStorage(filepath.Join(dir, DocumentsFile))
	if err != nil {
		return nil, err
	}
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, KeywordDir))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{dir: dir, Storage: db, Keyword: kw, Vectors: vec, readOnly: readOnly}, nil
}

// Dir returns the index directory.
func (s *Store) Dir() string { return s.dir }

// Save writes the vector file. Documents and keywords are persisted as they
// are added.
func (s *Store) Save() error {
	if s.readOnly {
		return errors.New("store opened read-only")
	}
	return s.Vectors.Save(filepath.Join(s.dir, VectorsFile))
}

// Close releases every index.
func (s *Store) Close() error {
	return errors.Join(s.Keyword.Close(), s.Vectors.Close(), s.Storage.Close())
}

// Inspect summarizes the index in dir without opening the keyword index.
func Inspect(ctx context.Context, dir string) (models.IndexStatus, error) {
	var st models.IndexStatus
	if !Exists(dir) {
		return st, nil
	}
	st.Exists = true

	db, err := storage.NewSQLiteStorage(filepath.Join(dir, DocumentsFile))
	if err != nil {
		return st, err
	}
	defer db.Close()
	docs, err := db.CountDocuments(ctx)
	if err != nil {
		return st, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := db.CountChunks(ctx)
	if err != nil {
		return st, fmt.Errorf("count chunks: %w", err)
	}
	st.Documents, st.Chunks = int(docs), int(chunks)

	if _, n, err := vector.ReadHeader(filepath.Join(dir, VectorsFile)); err == nil {
		st.Vectors = n
	} else if !os.IsNotExist(err) {
		return st, fmt.Errorf("read vectors: %w", err)
	}

	st.DiskUsageBytes, err = storage.DiskUsageBytes(dir)
	if err != nil {
		return st, fmt.Errorf("disk usage: %w", err)
	}
	return st, nil
}
