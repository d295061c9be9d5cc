package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/service"
)

var _ service.IndexMetaRepositoryInterface = (*IndexMetaRepository)(nil)

// IndexMetaRepository keeps the single row describing how passages were embedded.
type IndexMetaRepository struct {
	db dbtx
}

func NewIndexMetaRepository(pool *pgxpool.Pool) *IndexMetaRepository {
	return &IndexMetaRepository{db: pool}
}

func NewIndexMetaRepositoryWithTx(tx pgx.Tx) *IndexMetaRepository {
	return &IndexMetaRepository{db: tx}
}

// GetIndexMeta returns nil, nil before the first document is indexed.
func (r *IndexMetaRepository) GetIndexMeta(ctx context.Context) (*domain.IndexMeta, error) {
	var m domain.IndexMeta
	err := r.db.QueryRow(ctx,
		`SELECT embedding_model, dimensions, updated_at FROM index_meta WHERE id = TRUE`,
	).Scan(&m.EmbeddingModel, &m.Dimensions, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *IndexMetaRepository) UpsertIndexMeta(ctx context.Context, meta *domain.IndexMeta) error {
	updatedAt := meta.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO index_meta (id, embedding_model, dimensions, updated_at)
		 VALUES (TRUE, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET embedding_model = EXCLUDED.embedding_model,
		     dimensions = EXCLUDED.dimensions,
		     updated_at = EXCLUDED.updated_at`,
		meta.EmbeddingModel, meta.Dimensions, updatedAt,
	)
	return err
}

// IndexStore combines the meta row with the passage count for service.LoadIndex.
type IndexStore struct {
	*IndexMetaRepository
	passages *PassageRepository
}

var _ service.IndexStore = (*IndexStore)(nil)

func NewIndexStore(pool *pgxpool.Pool) *IndexStore {
	return &IndexStore{
		IndexMetaRepository: NewIndexMetaRepository(pool),
		passages:            NewPassageRepository(pool),
	}
}

func (s *IndexStore) CountPassages(ctx context.Context) (int, error) {
	return s.passages.CountPassages(ctx)
}
