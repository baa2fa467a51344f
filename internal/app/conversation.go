package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"researchhub/internal/model"
)

// Conversation persists chat turns and serves the recent window from the
// history cache when one is configured. Cache failures never fail a call.
type Conversation struct {
	messages MessageStore
	cache    HistoryCache
	logger   *logrus.Logger
}

func NewConversation(messages MessageStore, cache HistoryCache, logger *logrus.Logger) *Conversation {
	return &Conversation{messages: messages, cache: cache, logger: logger}
}

func (c *Conversation) Append(ctx context.Context, userID uint, scope model.Scope, role, content string) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		Role:        role,
		Content:     content,
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		WorkspaceID: scope.WorkspaceRef(),
	}
	if err := c.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	c.Forget(ctx, userID, scope)
	return msg, nil
}

// Recent returns the last n messages of the scope, oldest first.
func (c *Conversation) Recent(ctx context.Context, userID uint, scope model.Scope, n int) ([]model.ChatMessage, error) {
	if n <= 0 {
		return []model.ChatMessage{}, nil
	}
	var (
		version   int64
		cacheable bool
	)
	if c.cache != nil {
		cached, hit, err := c.cache.GetRecent(ctx, userID, scope, n)
		if err != nil {
			c.logger.WithError(err).WithField("scope", scope.String()).Warn("history cache read failed")
		} else if hit {
			return cached, nil
		}
		if version, err = c.cache.Version(ctx, userID, scope); err != nil {
			c.logger.WithError(err).WithField("scope", scope.String()).Warn("history cache version read failed")
		} else {
			cacheable = true
		}
	}

	messages, err := c.messages.ListRecentByScope(ctx, userID, scope, n)
	if err != nil {
		return nil, err
	}
	if cacheable {
		stored, err := c.cache.SetRecent(ctx, userID, scope, n, messages, version)
		switch {
		case err != nil:
			c.logger.WithError(err).WithField("scope", scope.String()).Warn("history cache write failed")
		case !stored:
			c.logger.WithField("scope", scope.String()).Debug("history changed during read, window not cached")
		}
	}
	return messages, nil
}

func (c *Conversation) History(ctx context.Context, userID uint, scope model.Scope) ([]model.ChatMessage, error) {
	return c.messages.ListByScope(ctx, userID, scope)
}

// Forget drops the cached recent window of the scope.
func (c *Conversation) Forget(ctx context.Context, userID uint, scope model.Scope) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, userID, scope); err != nil {
		c.logger.WithError(err).WithField("scope", scope.String()).Warn("history cache invalidate failed")
	}
}
