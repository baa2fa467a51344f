package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"researchhub/internal/app"
	"researchhub/internal/transport/http/response"
)

type SearchHandler struct {
	search *app.SearchService
}

func NewSearchHandler(search *app.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Arxiv(c *gin.Context) {
	maxResults := app.DefaultSearchResults
	if raw := c.Query("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "max_results must be an integer")
			return
		}
		maxResults = n
	}

	results, err := h.search.SearchArxiv(c.Request.Context(), c.Query("query"), maxResults)
	if err != nil {
		writeServiceError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, results)
}
