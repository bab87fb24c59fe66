package chromemdb

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-spec-rag/internal/config"
	"vehicle-spec-rag/internal/embedding/embeddingtest"
	"vehicle-spec-rag/internal/models"
)

const collection = "vehicle_manuals"

var passages = []string{
	"Brake caliper bolt torque is 35 Nm",
	"Tie-rod end nut torque is 115 Nm",
	"Stabilizer bar bracket nuts are tightened to 55 Nm",
	"Wheel speed sensor bolt is tightened to 18 Nm",
}

func newManager(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(&config.VectorStoreConfig{InMemory: true})
	require.NoError(t, err)
	return m
}

func chunksFor(texts ...string) []models.PassageChunk {
	out := make([]models.PassageChunk, len(texts))
	for i, text := range texts {
		out[i] = models.PassageChunk{
			SourceName:       "manual.pdf",
			PageNumber:       i,
			Text:             text,
			CharCount:        len(text),
			WordCount:        7,
			ApproxTokenCount: float64(len(text)) / 4,
			Embedding:        embeddingtest.Vector(text),
		}
	}
	return out
}

func TestReplaceAndQuery_TieRodTopResult(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Replace(ctx, collection, chunksFor(passages...)))

	got, err := m.Query(ctx, collection, embeddingtest.Vector("Torque for tie-rod end nut"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tie-rod end nut torque is 115 Nm"}, got)
}

func TestSearch_ResultsCarryMetadata(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Replace(ctx, collection, chunksFor(passages...)))

	results, err := m.Search(ctx, collection, embeddingtest.Vector("Tie-rod end nut torque is 115 Nm"), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "id_1", results[0].ID)
	assert.Equal(t, 1, results[0].PageNumber)
	assert.Equal(t, "manual.pdf", results[0].SourceName)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestQuery_AtMostK(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Replace(ctx, collection, chunksFor(passages...)))

	q := embeddingtest.Vector("bolt torque")
	for _, k := range []int{0, 1, 3, 4, 10} {
		got, err := m.Query(ctx, collection, q, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), k)
		assert.Len(t, got, min(k, len(passages)))
	}
}

func TestQuery_EmptyOrAbsentCollection(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	q := embeddingtest.Vector("Torque for tie-rod end nut")

	got, err := m.Query(ctx, "missing", q, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, m.Reset(ctx, collection))
	got, err = m.Query(ctx, collection, q, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReplace_DropsPreviousContent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Replace(ctx, collection, chunksFor(passages...)))
	require.NoError(t, m.Replace(ctx, collection, chunksFor("Lower ball joint nut torque is 175 Nm")))

	n, err := m.Count(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := m.Search(ctx, collection, embeddingtest.Vector("tie-rod"), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "id_0", results[0].ID)
	assert.Equal(t, "Lower ball joint nut torque is 175 Nm", results[0].Text)
}

func TestAdd_Validation(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Reset(ctx, collection))

	missing := chunksFor("Shock absorber lower nuts 90 Nm")
	missing[0].Embedding = nil
	assert.ErrorIs(t, m.Add(ctx, collection, missing), models.ErrStore)

	mixed := chunksFor("Shock absorber lower nuts 90 Nm", "Shock absorber upper mount nuts 63 Nm")
	mixed[1].Embedding = mixed[1].Embedding[:8]
	assert.ErrorIs(t, m.Add(ctx, collection, mixed), models.ErrStore)

	n, err := m.Count(ctx, collection)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReset_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Reset(ctx, collection))
	require.NoError(t, m.Reset(ctx, collection))

	n, err := m.Count(ctx, collection)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConcurrentQueriesDuringReplace(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	full := chunksFor(passages...)
	require.NoError(t, m.Replace(ctx, collection, full))

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := m.Replace(ctx, collection, full); err != nil {
					errs <- err
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				got, err := m.Query(ctx, collection, embeddingtest.Vector("nut torque"), 10)
				if err != nil {
					errs <- err
					continue
				}
				if len(got) != len(passages) {
					errs <- fmt.Errorf("query saw %d passages", len(got))
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	cfg := &config.VectorStoreConfig{
		InMemory:      true,
		Path:          t.TempDir(),
		EncryptionKey: "0123456789abcdef0123456789abcdef",
	}
	m, err := NewVectorDBManager(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Replace(ctx, collection, chunksFor(passages...)))
	assert.FileExists(t, m.SnapshotPath(collection))

	restored, err := NewVectorDBManager(cfg)
	require.NoError(t, err)
	require.NoError(t, restored.Import(ctx, collection))

	got, err := restored.Query(ctx, collection, embeddingtest.Vector("Torque for tie-rod end nut"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tie-rod end nut torque is 115 Nm"}, got)
}

func TestImport_NoSnapshot(t *testing.T) {
	m, err := NewVectorDBManager(&config.VectorStoreConfig{
		InMemory:      true,
		Path:          t.TempDir(),
		EncryptionKey: "0123456789abcdef0123456789abcdef",
	})
	require.NoError(t, err)
	assert.NoError(t, m.Import(context.Background(), collection))
}

func TestPersistentDB(t *testing.T) {
	ctx := context.Background()
	cfg := &config.VectorStoreConfig{Path: t.TempDir()}
	m, err := NewVectorDBManager(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Replace(ctx, collection, chunksFor(passages...)))

	reopened, err := NewVectorDBManager(cfg)
	require.NoError(t, err)
	n, err := reopened.Count(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, len(passages), n)
}

func TestCreateMetadata(t *testing.T) {
	md := CreateMetadata(models.PassageChunk{PageNumber: 4, CharCount: 130, WordCount: 21, ApproxTokenCount: 32.5})
	assert.Equal(t, map[string]string{
		models.MetaPageNumber:       "4",
		models.MetaCharCount:        "130",
		models.MetaWordCount:        "21",
		models.MetaApproxTokenCount: "32.5",
		models.MetaSourceName:       models.UnknownSource,
	}, md)
}
