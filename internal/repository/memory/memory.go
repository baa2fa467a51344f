// Package memory is an in-process backend with the same behaviour as the
// postgres repositories. Similarity search is brute-force cosine.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"researchhub/internal/model"
)

// Store holds every table behind one lock so multi-table operations are atomic.
type Store struct {
	mu           sync.RWMutex
	embeddingDim int

	users      map[uint]model.User
	workspaces map[uint]model.Workspace
	papers     map[uint]model.Paper
	messages   map[uint]model.ChatMessage

	nextUserID      uint
	nextWorkspaceID uint
	nextPaperID     uint
	nextMessageID   uint
}

func NewStore(embeddingDim int) *Store {
	return &Store{
		embeddingDim: embeddingDim,
		users:        make(map[uint]model.User),
		workspaces:   make(map[uint]model.Workspace),
		papers:       make(map[uint]model.Paper),
		messages:     make(map[uint]model.ChatMessage),
	}
}

func (s *Store) Users() *UserRepository           { return &UserRepository{s: s} }
func (s *Store) Workspaces() *WorkspaceRepository { return &WorkspaceRepository{s: s} }
func (s *Store) Papers() *PaperRepository         { return &PaperRepository{s: s} }
func (s *Store) Messages() *MessageRepository     { return &MessageRepository{s: s} }

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return model.ErrDuplicateEmail
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) GetByID(_ context.Context, id uint) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type WorkspaceRepository struct{ s *Store }

func (r *WorkspaceRepository) Create(_ context.Context, workspace *model.Workspace) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextWorkspaceID++
	workspace.ID = r.s.nextWorkspaceID
	if workspace.CreatedAt.IsZero() {
		workspace.CreatedAt = time.Now()
	}
	r.s.workspaces[workspace.ID] = *workspace
	return nil
}

func (r *WorkspaceRepository) ListByOwnerID(_ context.Context, ownerID uint) ([]model.Workspace, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]model.Workspace, 0)
	for _, w := range r.s.workspaces {
		if w.OwnerID == ownerID {
			list = append(list, w)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *WorkspaceRepository) GetByIDAndOwnerID(_ context.Context, id, ownerID uint) (*model.Workspace, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.workspaces[id]
	if !ok || w.OwnerID != ownerID {
		return nil, nil
	}
	return &w, nil
}

func (r *WorkspaceRepository) DeleteCascade(_ context.Context, id, ownerID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workspaces[id]
	if !ok || w.OwnerID != ownerID {
		return false, nil
	}
	for mid, m := range r.s.messages {
		if m.WorkspaceID != nil && *m.WorkspaceID == id {
			delete(r.s.messages, mid)
		}
	}
	for pid, p := range r.s.papers {
		if p.WorkspaceID != nil && *p.WorkspaceID == id {
			p.WorkspaceID = nil
			r.s.papers[pid] = p
		}
	}
	delete(r.s.workspaces, id)
	return true, nil
}

type PaperRepository struct{ s *Store }

func (r *PaperRepository) Create(_ context.Context, paper *model.Paper) error {
	vec := paper.EmbeddingVector()
	if len(vec) == 0 {
		return fmt.Errorf("embedding vector is empty")
	}
	if r.s.embeddingDim > 0 && len(vec) != r.s.embeddingDim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), r.s.embeddingDim)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextPaperID++
	paper.ID = r.s.nextPaperID
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = time.Now()
	}
	stored := *paper
	stored.WorkspaceID = copyRef(paper.WorkspaceID)
	r.s.papers[paper.ID] = stored
	return nil
}

func (r *PaperRepository) ListByScope(_ context.Context, ownerID uint, scope model.Scope) ([]model.Paper, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]model.Paper, 0)
	for _, p := range r.s.papers {
		if p.OwnerID == ownerID && scope.Matches(p.WorkspaceID) {
			list = append(list, clonePaper(p))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *PaperRepository) SearchSimilar(_ context.Context, ownerID uint, scope model.Scope, embedding []float32, limit int) ([]model.Paper, error) {
	if limit <= 0 {
		return []model.Paper{}, nil
	}
	if r.s.embeddingDim > 0 && len(embedding) != r.s.embeddingDim {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(embedding), r.s.embeddingDim)
	}
	type scored struct {
		paper    model.Paper
		distance float64
	}
	r.s.mu.RLock()
	candidates := make([]scored, 0)
	for _, p := range r.s.papers {
		if p.OwnerID == ownerID && scope.Matches(p.WorkspaceID) {
			candidates = append(candidates, scored{paper: clonePaper(p), distance: cosineDistance(p.EmbeddingVector(), embedding)})
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].paper.ID < candidates[j].paper.ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]model.Paper, len(candidates))
	for i, c := range candidates {
		out[i] = c.paper
	}
	return out, nil
}

type MessageRepository struct{ s *Store }

func (r *MessageRepository) Create(_ context.Context, message *model.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextMessageID++
	message.ID = r.s.nextMessageID
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	stored := *message
	stored.WorkspaceID = copyRef(message.WorkspaceID)
	r.s.messages[message.ID] = stored
	return nil
}

func (r *MessageRepository) ListByScope(_ context.Context, userID uint, scope model.Scope) ([]model.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]model.ChatMessage, 0)
	for _, m := range r.s.messages {
		if m.UserID == userID && scope.Matches(m.WorkspaceID) {
			m.WorkspaceID = copyRef(m.WorkspaceID)
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].Timestamp.Before(list[j].Timestamp)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *MessageRepository) ListRecentByScope(ctx context.Context, userID uint, scope model.Scope, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		return []model.ChatMessage{}, nil
	}
	all, err := r.ListByScope(ctx, userID, scope)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func copyRef(ref *uint) *uint {
	if ref == nil {
		return nil
	}
	v := *ref
	return &v
}

func clonePaper(p model.Paper) model.Paper {
	p.WorkspaceID = copyRef(p.WorkspaceID)
	return p
}
