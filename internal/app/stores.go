package app

import (
	"context"
	"io"

	"researchhub/internal/model"
)

const (
	EventPaperCreated     = "paper.created"
	EventWorkspaceDeleted = "workspace.deleted"
	EventChatDegraded     = "chat.degraded"
)

type UserStore interface {
	// Create returns model.ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

type WorkspaceStore interface {
	Create(ctx context.Context, workspace *model.Workspace) error
	ListByOwnerID(ctx context.Context, ownerID uint) ([]model.Workspace, error)
	GetByIDAndOwnerID(ctx context.Context, id, ownerID uint) (*model.Workspace, error)
	DeleteCascade(ctx context.Context, id, ownerID uint) (bool, error)
}

type PaperStore interface {
	Create(ctx context.Context, paper *model.Paper) error
	ListByScope(ctx context.Context, ownerID uint, scope model.Scope) ([]model.Paper, error)
	SearchSimilar(ctx context.Context, ownerID uint, scope model.Scope, embedding []float32, limit int) ([]model.Paper, error)
}

type MessageStore interface {
	Create(ctx context.Context, message *model.ChatMessage) error
	ListByScope(ctx context.Context, userID uint, scope model.Scope) ([]model.ChatMessage, error)
	ListRecentByScope(ctx context.Context, userID uint, scope model.Scope, limit int) ([]model.ChatMessage, error)
}

type HistoryCache interface {
	GetRecent(ctx context.Context, userID uint, scope model.Scope, limit int) ([]model.ChatMessage, bool, error)
	// Version is read before loading a window from the store; SetRecent
	// skips the write if Invalidate ran in between.
	Version(ctx context.Context, userID uint, scope model.Scope) (int64, error)
	SetRecent(ctx context.Context, userID uint, scope model.Scope, limit int, messages []model.ChatMessage, version int64) (bool, error)
	Invalidate(ctx context.Context, userID uint, scope model.Scope) error
}

// EventPublisher receives domain events after the owning request's writes succeed.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type TextExtractor interface {
	ExtractText(data []byte) string
}
