package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/votewise/votewise/internal/domain"
	"github.com/votewise/votewise/internal/service"
)

var _ service.PassageSearcher = (*PassageRepository)(nil)
var _ service.PassageWriter = (*PassageRepository)(nil)

// PassageRepository handles persistence of embedded program passages.
type PassageRepository struct {
	db dbtx
}

func NewPassageRepository(pool *pgxpool.Pool) *PassageRepository {
	return &PassageRepository{db: pool}
}

func NewPassageRepositoryWithTx(tx pgx.Tx) *PassageRepository {
	return &PassageRepository{db: tx}
}

// SearchPassages returns the k passages closest to embedding by cosine
// distance, most relevant first.
func (r *PassageRepository) SearchPassages(ctx context.Context, embedding []float32, k int) ([]domain.Passage, error) {
	if k <= 0 {
		k = service.DefaultTopK
	}

	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.document_id, d.source_key, p.chunk_index, p.content,
		        1.0 / (1.0 + (p.embedding <=> $1)) AS score
		 FROM passages p
		 JOIN documents d ON d.id = p.document_id
		 ORDER BY p.embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	passages := make([]domain.Passage, 0, k)
	for rows.Next() {
		var p domain.Passage
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Source, &p.Index, &p.Text, &p.Score); err != nil {
			return nil, err
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// ReplacePassages deletes the existing passages of a document and inserts new ones.
func (r *PassageRepository) ReplacePassages(ctx context.Context, documentID string, passages []domain.EmbeddedPassage) error {
	_, err := r.db.Exec(ctx, `DELETE FROM passages WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	for _, p := range passages {
		_, err := r.db.Exec(ctx,
			`INSERT INTO passages (id, document_id, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			p.ID, documentID, p.Index, p.Text, pgvector.NewVector(p.Embedding),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *PassageRepository) CountPassages(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM passages`).Scan(&n)
	return n, err
}
