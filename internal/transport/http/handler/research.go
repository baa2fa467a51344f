package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"researchhub/internal/app"
	"researchhub/internal/model"
	"researchhub/internal/transport/http/response"
)

// multipartOverhead leaves room for form boundaries and fields around the file.
const multipartOverhead = 1 << 20

type ResearchHandler struct {
	research       *app.ResearchService
	maxUploadBytes int64
}

type ImportPaperRequest struct {
	PDFURL      string `json:"pdf_url" binding:"required"`
	Title       string `json:"title" binding:"required"`
	WorkspaceID *uint  `json:"workspace_id"`
}

type AskRequest struct {
	Message     string `json:"message"`
	WorkspaceID *uint  `json:"workspace_id"`
}

type paperResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Abstract  string    `json:"abstract"`
	Authors   string    `json:"authors"`
	CreatedAt time.Time `json:"created_at"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewResearchHandler(research *app.ResearchService, maxUploadBytes int64) *ResearchHandler {
	return &ResearchHandler{research: research, maxUploadBytes: maxUploadBytes}
}

func (h *ResearchHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(c, app.ErrFileTooLarge, "")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return
	}
	workspaceID, err := parseOptionalUint(c.PostForm("workspace_id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid workspace_id")
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		writeServiceError(c, app.ErrFileTooLarge, "")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded file failed")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
		return
	}

	paper, err := h.research.Upload(c.Request.Context(), app.UploadInput{
		OwnerID:     userID,
		WorkspaceID: workspaceID,
		Filename:    fileHeader.Filename,
		Data:        data,
	})
	if err != nil {
		writeServiceError(c, err, "process paper failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename": fileHeader.Filename,
		"id":       paper.ID,
		"message":  "Paper processed successfully",
	})
}

func (h *ResearchHandler) Import(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req ImportPaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	paper, err := h.research.Import(c.Request.Context(), app.ImportInput{
		OwnerID:     userID,
		WorkspaceID: req.WorkspaceID,
		PDFURL:      req.PDFURL,
		Title:       req.Title,
	})
	if err != nil {
		writeServiceError(c, err, "import paper failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename": paper.Title,
		"id":       paper.ID,
		"message":  "Paper imported successfully",
	})
}

func (h *ResearchHandler) Ask(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.research.Ask(c.Request.Context(), app.AskInput{
		UserID:      userID,
		WorkspaceID: req.WorkspaceID,
		Message:     req.Message,
	})
	if err != nil {
		writeServiceError(c, err, "ask failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ResearchHandler) ChatHistory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	workspaceID, err := parseOptionalUint(c.Query("workspace_id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid workspace_id")
		return
	}

	messages, err := h.research.ChatHistory(c.Request.Context(), userID, workspaceID)
	if err != nil {
		writeServiceError(c, err, "load chat history failed")
		return
	}
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp})
	}
	c.JSON(http.StatusOK, out)
}

func (h *ResearchHandler) Papers(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	workspaceID, err := parseOptionalUint(c.Query("workspace_id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid workspace_id")
		return
	}

	papers, err := h.research.ListPapers(c.Request.Context(), userID, workspaceID)
	if err != nil {
		writeServiceError(c, err, "list papers failed")
		return
	}
	c.JSON(http.StatusOK, newPaperResponses(papers))
}

func newPaperResponses(papers []model.Paper) []paperResponse {
	out := make([]paperResponse, 0, len(papers))
	for _, p := range papers {
		out = append(out, paperResponse{
			ID:        p.ID,
			Title:     p.Title,
			Abstract:  p.Abstract,
			Authors:   p.Authors,
			CreatedAt: p.CreatedAt,
		})
	}
	return out
}
