package repository

import (
	"gorm.io/gorm"

	"researchhub/internal/model"
)

// whereScope narrows q to rows in scope. Global means workspace_id IS NULL.
func whereScope(q *gorm.DB, scope model.Scope) *gorm.DB {
	if scope.IsGlobal() {
		return q.Where("workspace_id IS NULL")
	}
	return q.Where("workspace_id = ?", scope.WorkspaceID)
}
