package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/embedding"
	"github.com/hyperjump/tradeidea/internal/extract"
	"github.com/hyperjump/tradeidea/internal/fileid"
	"github.com/hyperjump/tradeidea/internal/keyword"
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/store"
)

// ErrPDFDirMissing is returned when the PDF directory does not exist.
var ErrPDFDirMissing = errors.New("pdf directory does not exist")

const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
	metaKeySourceFile  = "source_file"
)

// Options configures a Builder.
type Options struct {
	PDFDir       string
	IndexDir     string
	ChunkSize    int
	ChunkOverlap int
	// BatchSize is the number of chunks per embedding request. Defaults to 64.
	BatchSize int
}

// Builder turns a directory of PDFs into a persisted index.
type Builder struct {
	opts      Options
	embedder  embedding.Embedder
	extractor *extract.Extractor
	chunker   *Chunker
	logger    *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder that embeds chunks with embedder.
func NewBuilder(opts Options, embedder embedding.Embedder, options ...BuilderOption) *Builder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	b := &Builder{
		opts:      opts,
		embedder:  embedder,
		extractor: extract.NewExtractor(),
		chunker:   NewChunker(opts.ChunkSize, opts.ChunkOverlap),
		logger:    zap.NewNop(),
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// Build indexes every PDF in the PDF directory. It reports false without an
// error when the index already exists or there is nothing to index. The
// index is assembled in a staging directory and renamed into place, so a
// failed build leaves no partial index behind.
func (b *Builder) Build(ctx context.Context) (bool, error) {
	start := time.Now()
	info, err := os.Stat(b.opts.PDFDir)
	if err != nil || !info.IsDir() {
		return false, fmt.Errorf("%w: %s", ErrPDFDirMissing, b.opts.PDFDir)
	}
	if _, err := os.Stat(b.opts.IndexDir); err == nil {
		b.logger.Info("index already exists, skipping embedding", zap.String("index_dir", b.opts.IndexDir))
		return false, nil
	}

	pdfs, err := listPDFs(b.opts.PDFDir)
	if err != nil {
		return false, err
	}
	if len(pdfs) == 0 {
		b.logger.Warn("no pdf files to index", zap.String("pdf_dir", b.opts.PDFDir))
		return false, nil
	}

	parent := filepath.Dir(b.opts.IndexDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return false, fmt.Errorf("create index parent: %w", err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(b.opts.IndexDir)+"-staging-")
	if err != nil {
		return false, fmt.Errorf("create staging dir: %w", err)
	}
	built := false
	defer func() {
		if !built {
			_ = os.RemoveAll(staging)
		}
	}()

	st, err := store.Create(staging, b.embedder.Dimensions())
	if err != nil {
		return false, err
	}
	indexed, err := b.indexAll(ctx, st, pdfs)
	if err == nil && indexed > 0 {
		err = st.Save()
	}
	if closeErr := st.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close index: %w", closeErr)
	}
	if err != nil {
		return false, err
	}
	if indexed == 0 {
		b.logger.Warn("no pdf produced any text, index not written", zap.Int("pdfs", len(pdfs)))
		return false, nil
	}

	if err := os.Rename(staging, b.opts.IndexDir); err != nil {
		return false, fmt.Errorf("publish index: %w", err)
	}
	built = true
	b.logger.Info("index built",
		zap.String("index_dir", b.opts.IndexDir),
		zap.Int("documents", indexed),
		zap.Duration("elapsed", time.Since(start)))
	return true, nil
}

func (b *Builder) indexAll(ctx context.Context, st *store.Store, pdfs []string) (int, error) {
	indexed := 0
	for _, path := range pdfs {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		text, err := b.extractor.Extract(path)
		if err != nil {
			b.logger.Warn("skipping unreadable pdf", zap.String("path", path), zap.Error(err))
			continue
		}
		text = Preprocess(text)
		if text == "" {
			b.logger.Warn("skipping pdf without text", zap.String("path", path))
			continue
		}
		n, err := b.indexDocument(ctx, st, path, text)
		if err != nil {
			return indexed, fmt.Errorf("index %s: %w", filepath.Base(path), err)
		}
		indexed++
		b.logger.Debug("indexed pdf", zap.String("path", path), zap.Int("chunks", n))
	}
	return indexed, nil
}

// indexDocument stores, chunks, embeds and indexes one document.
func (b *Builder) indexDocument(ctx context.Context, st *store.Store, path, text string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	meta := map[string]interface{}{
		metaKeySourcePath: absPath,
		metaKeySourceFile: fileid.SourceJSON(absPath),
	}
	if info, err := os.Stat(absPath); err == nil {
		// Strings keep UnixNano exact through the JSON round trip.
		meta[metaKeySourceMtime] = strconv.FormatInt(info.ModTime().UnixNano(), 10)
		meta[metaKeySourceSize] = strconv.FormatInt(info.Size(), 10)
	}
	doc := &models.Document{
		ID:       fileid.DocID(absPath),
		Title:    filepath.Base(absPath),
		Content:  text,
		Metadata: meta,
	}
	if err := st.Storage.CreateDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to store document: %w", err)
	}

	chunks := b.chunker.Chunk(doc.ID, doc.Content)
	embeddings, err := b.embedChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if err := st.Storage.BatchCreateChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := st.Vectors.Add(ctx, ids, embeddings); err != nil {
		return 0, fmt.Errorf("failed to index vectors: %w", err)
	}
	title := keywordTitle(doc.Title)
	for _, ch := range chunks {
		if err := st.Keyword.Index(ctx, ch.ID, keyword.Entry{Title: title, Content: ch.Content}); err != nil {
			return 0, fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	return len(chunks), nil
}

func (b *Builder) embedChunks(ctx context.Context, chunks []*models.DocumentChunk) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.opts.BatchSize {
		end := start + b.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, ch := range chunks[start:end] {
			texts[i] = ch.Content
		}
		vecs, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}
		for i, v := range vecs {
			chunks[start+i].Embedding = v
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pdf directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && extract.Supported(filepath.Ext(e.Name())) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
