package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"vehicle-spec-rag/internal/config"
	"vehicle-spec-rag/internal/models"
)

// Passage is one stored chunk. Rows of all collections share the table.
type Passage struct {
	bun.BaseModel    `bun:"table:passages,alias:p"`
	ID               int64           `bun:"id,pk,autoincrement"`
	Collection       string          `bun:"collection,notnull"`
	DocID            string          `bun:"doc_id,notnull"`
	Content          string          `bun:"content,notnull"`
	SourceName       string          `bun:"source_name,notnull"`
	PageNumber       int             `bun:"page_number,notnull"`
	CharCount        int             `bun:"char_count,notnull"`
	WordCount        int             `bun:"word_count,notnull"`
	ApproxTokenCount float64         `bun:"approx_token_count,notnull"`
	Embedding        pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Similarity       float32         `bun:"similarity,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the connection pool with the configured driver: bun's
// pgdriver or lib/pq.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case config.DriverPq:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return sqldb, nil
	case config.DriverPgdriver, "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Passage)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create passages table: %w", err)
	}
	_, err := db.NewCreateIndex().
		Model((*Passage)(nil)).
		Index("passages_collection_idx").
		Column("collection").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create collection index: %w", err)
	}
	return nil
}

// drop table passages
func DropPassages(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Passage)(nil)).IfExists().Exec(ctx)
	return err
}

// Store keeps collections in Postgres with pgvector, ranked by cosine distance.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Reset removes every passage of the collection.
func (s *Store) Reset(ctx context.Context, name string) error {
	return s.inTx(ctx, name, func(tx bun.Tx) error {
		return deleteCollection(ctx, tx, name)
	})
}

// Add inserts chunks under ids id_0..id_{n-1}.
func (s *Store) Add(ctx context.Context, name string, chunks []models.PassageChunk) error {
	return s.inTx(ctx, name, func(tx bun.Tx) error {
		return insertPassages(ctx, tx, name, chunks)
	})
}

// Replace swaps the collection's content in a single transaction, so readers
// see either the old or the new passages.
func (s *Store) Replace(ctx context.Context, name string, chunks []models.PassageChunk) error {
	return s.inTx(ctx, name, func(tx bun.Tx) error {
		if err := deleteCollection(ctx, tx, name); err != nil {
			return err
		}
		return insertPassages(ctx, tx, name, chunks)
	})
}

// inTx runs fn in a transaction holding the collection's advisory lock, which
// serializes writers across processes.
func (s *Store) inTx(ctx context.Context, name string, fn func(tx bun.Tx) error) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", name); err != nil {
			return fmt.Errorf("failed to lock collection: %w", err)
		}
		return fn(tx)
	})
	if err != nil {
		return fmt.Errorf("%w: collection %s: %w", models.ErrStore, name, err)
	}
	return nil
}

func deleteCollection(ctx context.Context, tx bun.Tx, name string) error {
	res, err := tx.NewDelete().Model((*Passage)(nil)).Where("collection = ?", name).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Warn().Str("collection", name).Msg("Collection does not exist, creating it")
	}
	return nil
}

func insertPassages(ctx context.Context, tx bun.Tx, name string, chunks []models.PassageChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows, err := ToPassages(name, chunks)
	if err != nil {
		return err
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert passages: %w", err)
	}
	log.Info().Str("collection", name).Int("chunks", len(rows)).Msg("Stored passages")
	return nil
}

// Query returns up to k passage texts, most similar first.
func (s *Store) Query(ctx context.Context, name string, embedding []float32, k int) ([]string, error) {
	results, err := s.Search(ctx, name, embedding, k)
	if err != nil {
		return nil, err
	}
	return models.Texts(results), nil
}

func (s *Store) Search(ctx context.Context, name string, embedding []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return []models.SearchResult{}, nil
	}
	var rows []Passage
	if err := SearchQuery(s.db, name, embedding, k).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%w: failed to search %s: %w", models.ErrStore, name, err)
	}
	return ToResults(rows), nil
}

// SearchQuery ranks the collection's passages by cosine distance to embedding.
func SearchQuery(db bun.IDB, name string, embedding []float32, k int) *bun.SelectQuery {
	vec := pgvector.NewVector(embedding)
	return db.NewSelect().
		Model((*Passage)(nil)).
		Column("doc_id", "content", "source_name", "page_number").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", vec).
		Where("collection = ?", name).
		OrderExpr("embedding <=> ?::vector", vec).
		Limit(k)
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	n, err := s.db.NewSelect().Model((*Passage)(nil)).Where("collection = ?", name).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count %s: %w", models.ErrStore, name, err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ToPassages converts chunks to rows, numbering them in order.
func ToPassages(name string, chunks []models.PassageChunk) ([]Passage, error) {
	rows := make([]Passage, len(chunks))
	dim := 0
	for i, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %d has no embedding", i)
		}
		if dim == 0 {
			dim = len(ch.Embedding)
		} else if len(ch.Embedding) != dim {
			return nil, fmt.Errorf("chunk %d has dimension %d, expected %d", i, len(ch.Embedding), dim)
		}
		source := ch.SourceName
		if source == "" {
			source = models.UnknownSource
		}
		rows[i] = Passage{
			Collection:       name,
			DocID:            fmt.Sprintf("id_%d", i),
			Content:          ch.Text,
			SourceName:       source,
			PageNumber:       ch.PageNumber,
			CharCount:        ch.CharCount,
			WordCount:        ch.WordCount,
			ApproxTokenCount: ch.ApproxTokenCount,
			Embedding:        pgvector.NewVector(ch.Embedding),
		}
	}
	return rows, nil
}

func ToResults(rows []Passage) []models.SearchResult {
	out := make([]models.SearchResult, len(rows))
	for i, r := range rows {
		out[i] = models.SearchResult{
			ID:         r.DocID,
			Text:       r.Content,
			SourceName: r.SourceName,
			PageNumber: r.PageNumber,
			Similarity: r.Similarity,
		}
	}
	return out
}
