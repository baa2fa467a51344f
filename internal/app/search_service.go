package app

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"researchhub/internal/search/arxiv"
)

const (
	DefaultSearchResults = 10
	MaxSearchResults     = 50
)

type PaperSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]arxiv.Result, error)
}

type SearchService struct {
	searcher PaperSearcher
	logger   *logrus.Logger
}

func NewSearchService(searcher PaperSearcher, logger *logrus.Logger) *SearchService {
	return &SearchService{searcher: searcher, logger: logger}
}

// SearchArxiv never fails on upstream problems; it logs and returns no results.
func (s *SearchService) SearchArxiv(ctx context.Context, query string, maxResults int) ([]arxiv.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	if maxResults <= 0 {
		maxResults = DefaultSearchResults
	}
	if maxResults > MaxSearchResults {
		maxResults = MaxSearchResults
	}

	results, err := s.searcher.Search(ctx, query, maxResults)
	if err != nil {
		s.logger.WithError(err).WithField("query", query).Warn("arxiv search failed")
		return []arxiv.Result{}, nil
	}
	if results == nil {
		results = []arxiv.Result{}
	}
	return results, nil
}
