package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"researchhub/internal/app"
	"researchhub/internal/model"
	"researchhub/internal/transport/http/response"
)

type WorkspaceHandler struct {
	workspaces *app.WorkspaceService
}

type CreateWorkspaceRequest struct {
	Name        string  `json:"name" binding:"required,max=128"`
	Description *string `json:"description"`
}

type workspaceResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	OwnerID     uint    `json:"owner_id"`
}

func newWorkspaceResponse(w model.Workspace) workspaceResponse {
	return workspaceResponse{ID: w.ID, Name: w.Name, Description: w.Description, OwnerID: w.OwnerID}
}

func NewWorkspaceHandler(workspaces *app.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	workspace, err := h.workspaces.Create(c.Request.Context(), app.CreateWorkspaceInput{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(c, err, "create workspace failed")
		return
	}
	c.JSON(http.StatusOK, newWorkspaceResponse(*workspace))
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	workspaces, err := h.workspaces.List(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "list workspaces failed")
		return
	}
	out := make([]workspaceResponse, 0, len(workspaces))
	for _, w := range workspaces {
		out = append(out, newWorkspaceResponse(w))
	}
	c.JSON(http.StatusOK, out)
}

func (h *WorkspaceHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	workspaceID, err := parseUintParam(c, "id")
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeWorkspaceNotFound, "Workspace not found")
		return
	}

	if err := h.workspaces.Delete(c.Request.Context(), userID, workspaceID); err != nil {
		writeServiceError(c, err, "delete workspace failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workspace deleted successfully"})
}
