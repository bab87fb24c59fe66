package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"vehicle-spec-rag/internal/config"
	"vehicle-spec-rag/internal/models"
)

// errNoEmbeddingFunc is returned when chromem is asked to embed on its own.
// Every document and query must arrive with a precomputed vector.
var errNoEmbeddingFunc = errors.New("chromemdb: embeddings must be precomputed")

func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// VectorDBManager encapsulates the chromem-go database operations. Writes to a
// collection hold its write lock, queries its read lock, so a query never sees
// a collection between reset and add.
type VectorDBManager struct {
	db            *chromem.DB
	dbPath        string
	inMemory      bool
	compress      bool
	encryptionKey string

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
	dims  map[string]int
}

// NewVectorDBManager initializes a new vector database manager
func NewVectorDBManager(cfg *config.VectorStoreConfig) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create database: %w", models.ErrStore, err)
		}
	}

	return &VectorDBManager{
		db:            db,
		dbPath:        cfg.Path,
		inMemory:      cfg.InMemory,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
		locks:         map[string]*sync.RWMutex{},
		dims:          map[string]int{},
	}, nil
}

func (m *VectorDBManager) lock(name string) *sync.RWMutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		m.locks[name] = l
	}
	return l
}

// Reset drops the collection if it exists and recreates it empty.
func (m *VectorDBManager) Reset(ctx context.Context, name string) error {
	l := m.lock(name)
	l.Lock()
	defer l.Unlock()
	return m.reset(name)
}

// Add stores chunks under ids id_0..id_{n-1}.
func (m *VectorDBManager) Add(ctx context.Context, name string, chunks []models.PassageChunk) error {
	l := m.lock(name)
	l.Lock()
	defer l.Unlock()
	return m.add(ctx, name, chunks)
}

// Replace resets the collection and adds chunks as one step. Queries against
// the collection block until both are done.
func (m *VectorDBManager) Replace(ctx context.Context, name string, chunks []models.PassageChunk) error {
	l := m.lock(name)
	l.Lock()
	defer l.Unlock()

	if err := m.reset(name); err != nil {
		return err
	}
	if err := m.add(ctx, name, chunks); err != nil {
		return err
	}
	if m.snapshotEnabled() {
		if err := m.export(name); err != nil {
			return err
		}
	}
	return nil
}

func (m *VectorDBManager) reset(name string) error {
	if m.db.GetCollection(name, noEmbedding) == nil {
		log.Warn().Str("collection", name).Msg("Collection does not exist, creating it")
	} else if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("%w: failed to drop collection %s: %w", models.ErrStore, name, err)
	}
	m.mu.Lock()
	delete(m.dims, name)
	m.mu.Unlock()

	if _, err := m.db.CreateCollection(name, nil, noEmbedding); err != nil {
		return fmt.Errorf("%w: failed to create collection %s: %w", models.ErrStore, name, err)
	}
	log.Debug().Str("collection", name).Msg("Collection reset")
	return nil
}

func (m *VectorDBManager) add(ctx context.Context, name string, chunks []models.PassageChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	c, err := m.db.GetOrCreateCollection(name, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("%w: failed to create/get collection %s: %w", models.ErrStore, name, err)
	}

	m.mu.Lock()
	dim := m.dims[name]
	m.mu.Unlock()

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", models.ErrStore, i)
		}
		if dim == 0 {
			dim = len(ch.Embedding)
		}
		if len(ch.Embedding) != dim {
			return fmt.Errorf("%w: chunk %d has dimension %d, collection %s uses %d",
				models.ErrStore, i, len(ch.Embedding), name, dim)
		}
		docs[i] = chromem.Document{
			ID:        DocumentID(i),
			Content:   ch.Text,
			Metadata:  CreateMetadata(ch),
			Embedding: ch.Embedding,
		}
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: failed to add documents to %s: %w", models.ErrStore, name, err)
	}
	m.mu.Lock()
	m.dims[name] = dim
	m.mu.Unlock()

	log.Info().Str("collection", name).Int("chunks", len(docs)).Msg("Added documents to vector database")
	return nil
}

// Query returns up to k passage texts, most similar first.
func (m *VectorDBManager) Query(ctx context.Context, name string, embedding []float32, k int) ([]string, error) {
	results, err := m.Search(ctx, name, embedding, k)
	if err != nil {
		return nil, err
	}
	return models.Texts(results), nil
}

// Search is Query with ids, metadata and similarity scores. An absent or
// empty collection yields no results.
func (m *VectorDBManager) Search(ctx context.Context, name string, embedding []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return []models.SearchResult{}, nil
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", models.ErrStore)
	}

	l := m.lock(name)
	l.RLock()
	defer l.RUnlock()

	c := m.db.GetCollection(name, noEmbedding)
	if c == nil || c.Count() == 0 {
		return []models.SearchResult{}, nil
	}

	// chromem rejects nResults above the document count
	n := min(k, c.Count())
	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query %s: %w", models.ErrStore, name, err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		page, _ := strconv.Atoi(r.Metadata[models.MetaPageNumber])
		out[i] = models.SearchResult{
			ID:         r.ID,
			Text:       r.Content,
			SourceName: r.Metadata[models.MetaSourceName],
			PageNumber: page,
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Count returns the number of documents in the collection, 0 if it is absent.
func (m *VectorDBManager) Count(ctx context.Context, name string) (int, error) {
	l := m.lock(name)
	l.RLock()
	defer l.RUnlock()

	c := m.db.GetCollection(name, noEmbedding)
	if c == nil {
		return 0, nil
	}
	return c.Count(), nil
}

func (m *VectorDBManager) Close() error {
	return nil
}

func (m *VectorDBManager) snapshotEnabled() bool {
	return m.inMemory && m.encryptionKey != "" && m.dbPath != ""
}

// SnapshotPath is the encrypted export file of a collection.
func (m *VectorDBManager) SnapshotPath(name string) string {
	return filepath.Join(m.dbPath, name+".chromem")
}

// Export writes an encrypted snapshot of the collection.
func (m *VectorDBManager) Export(ctx context.Context, name string) error {
	l := m.lock(name)
	l.RLock()
	defer l.RUnlock()
	return m.export(name)
}

func (m *VectorDBManager) export(name string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("%w: encryption key is required", models.ErrStore)
	}
	if m.dbPath == "" {
		return fmt.Errorf("%w: db path is required", models.ErrStore)
	}
	if err := os.MkdirAll(m.dbPath, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", models.ErrStore, m.dbPath, err)
	}

	log.Debug().
		Str("collection", name).
		Str("file", m.SnapshotPath(name)).
		Bool("compress", m.compress).
		Msg("Exporting collection")
	if err := m.db.ExportToFile(m.SnapshotPath(name), m.compress, m.encryptionKey, name); err != nil {
		return fmt.Errorf("%w: failed to export database: %w", models.ErrStore, err)
	}
	return nil
}

// Import loads the collection from its snapshot. A missing snapshot is not an error.
func (m *VectorDBManager) Import(ctx context.Context, name string) error {
	if !m.snapshotEnabled() {
		return nil
	}
	path := m.SnapshotPath(name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("file", path).Msg("No snapshot to import")
		return nil
	}

	l := m.lock(name)
	l.Lock()
	defer l.Unlock()

	if err := m.db.ImportFromFile(path, m.encryptionKey, name); err != nil {
		return fmt.Errorf("%w: failed to import database: %w", models.ErrStore, err)
	}
	m.mu.Lock()
	delete(m.dims, name)
	m.mu.Unlock()
	log.Info().Str("collection", name).Str("file", path).Msg("Imported collection snapshot")
	return nil
}

// DocumentID is the synthetic id of the i-th chunk of an ingestion run.
func DocumentID(i int) string {
	return "id_" + strconv.Itoa(i)
}

// CreateMetadata converts chunk statistics to chromem's string metadata.
func CreateMetadata(ch models.PassageChunk) map[string]string {
	source := ch.SourceName
	if source == "" {
		source = models.UnknownSource
	}
	return map[string]string{
		models.MetaPageNumber:       strconv.Itoa(ch.PageNumber),
		models.MetaCharCount:        strconv.Itoa(ch.CharCount),
		models.MetaWordCount:        strconv.Itoa(ch.WordCount),
		models.MetaApproxTokenCount: strconv.FormatFloat(ch.ApproxTokenCount, 'f', -1, 64),
		models.MetaSourceName:       source,
	}
}
