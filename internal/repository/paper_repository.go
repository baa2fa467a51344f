package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"researchhub/internal/model"
)

type PaperRepository struct {
	db           *gorm.DB
	embeddingDim int
}

func NewPaperRepository(db *gorm.DB, embeddingDim int) *PaperRepository {
	return &PaperRepository{db: db, embeddingDim: embeddingDim}
}

func (r *PaperRepository) Create(ctx context.Context, paper *model.Paper) error {
	if err := validateEmbeddingDim(paper.EmbeddingVector(), r.embeddingDim); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(paper).Error; err != nil {
		return fmt.Errorf("create paper failed: %w", err)
	}
	return nil
}

// ListByScope returns the owner's papers in scope, newest first.
func (r *PaperRepository) ListByScope(ctx context.Context, ownerID uint, scope model.Scope) ([]model.Paper, error) {
	q := whereScope(r.db.WithContext(ctx).Where("owner_id = ?", ownerID), scope)
	var list []model.Paper
	if err := q.Omit("embedding", "content").Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list papers failed: %w", err)
	}
	return list, nil
}

// SearchSimilar filters by owner and scope, then orders the remaining
// candidates by cosine distance to embedding. Paper id breaks ties.
func (r *PaperRepository) SearchSimilar(ctx context.Context, ownerID uint, scope model.Scope, embedding []float32, limit int) ([]model.Paper, error) {
	if limit <= 0 {
		return []model.Paper{}, nil
	}
	if err := validateEmbeddingDim(embedding, r.embeddingDim); err != nil {
		return nil, err
	}
	vec := pgvector.NewVector(embedding)
	q := whereScope(r.db.WithContext(ctx).Model(&model.Paper{}).Where("owner_id = ?", ownerID), scope)
	var list []model.Paper
	if err := q.
		Order(clause.Expr{SQL: "embedding <=> ?", Vars: []any{vec}}).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("search similar papers failed: %w", err)
	}
	return list, nil
}

func validateEmbeddingDim(embedding []float32, dim int) error {
	if len(embedding) == 0 {
		return fmt.Errorf("embedding vector is empty")
	}
	if dim > 0 && len(embedding) != dim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(embedding), dim)
	}
	return nil
}
