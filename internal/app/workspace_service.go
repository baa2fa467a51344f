package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"researchhub/internal/model"
)

const maxWorkspaceNameLength = 128

type WorkspaceService struct {
	workspaces   WorkspaceStore
	conversation *Conversation
	events       EventPublisher
	logger       *logrus.Logger
}

type CreateWorkspaceInput struct {
	OwnerID     uint
	Name        string
	Description *string
}

func NewWorkspaceService(workspaces WorkspaceStore, conversation *Conversation, events EventPublisher, logger *logrus.Logger) *WorkspaceService {
	return &WorkspaceService{
		workspaces:   workspaces,
		conversation: conversation,
		events:       events,
		logger:       logger,
	}
}

func (s *WorkspaceService) Create(ctx context.Context, input CreateWorkspaceInput) (*model.Workspace, error) {
	name := strings.TrimSpace(input.Name)
	if input.OwnerID == 0 || name == "" || utf8.RuneCountInString(name) > maxWorkspaceNameLength {
		return nil, ErrInvalidInput
	}
	var description *string
	if input.Description != nil {
		d := strings.TrimSpace(*input.Description)
		description = &d
	}

	workspace := &model.Workspace{
		Name:        name,
		Description: description,
		OwnerID:     input.OwnerID,
	}
	if err := s.workspaces.Create(ctx, workspace); err != nil {
		return nil, err
	}
	return workspace, nil
}

func (s *WorkspaceService) List(ctx context.Context, ownerID uint) ([]model.Workspace, error) {
	if ownerID == 0 {
		return nil, ErrInvalidInput
	}
	return s.workspaces.ListByOwnerID(ctx, ownerID)
}

// Delete removes the workspace atomically: its messages are deleted and its
// papers move to the owner's global scope.
func (s *WorkspaceService) Delete(ctx context.Context, ownerID, workspaceID uint) error {
	if ownerID == 0 || workspaceID == 0 {
		return ErrWorkspaceNotFound
	}
	found, err := s.workspaces.DeleteCascade(ctx, workspaceID, ownerID)
	if err != nil {
		return err
	}
	if !found {
		return ErrWorkspaceNotFound
	}

	s.conversation.Forget(ctx, ownerID, model.WorkspaceScope(workspaceID))
	if s.events != nil {
		if err := s.events.Publish(ctx, EventWorkspaceDeleted, map[string]uint{
			"workspace_id": workspaceID,
			"owner_id":     ownerID,
		}); err != nil {
			s.logger.WithError(err).WithField("workspace_id", workspaceID).Warn("publish workspace.deleted failed")
		}
	}
	return nil
}

// ResolveScope maps an optional workspace id to a scope the owner may use.
func (s *WorkspaceService) ResolveScope(ctx context.Context, ownerID uint, workspaceID *uint) (model.Scope, error) {
	scope := model.ScopeFromRef(workspaceID)
	if scope.IsGlobal() {
		return scope, nil
	}
	workspace, err := s.workspaces.GetByIDAndOwnerID(ctx, scope.WorkspaceID, ownerID)
	if err != nil {
		return model.Scope{}, err
	}
	if workspace == nil {
		return model.Scope{}, ErrWorkspaceNotFound
	}
	return scope, nil
}
