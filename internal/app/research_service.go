package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"researchhub/internal/ai"
	"researchhub/internal/embedding"
	"researchhub/internal/model"
	"researchhub/internal/pkg/pdfextract"
)

const (
	abstractSuffix = "..."

	systemPromptPrefix = "You are an intelligent Research Assistant. Use the following context from the user's papers to answer their question. " +
		"Formulate your answer based ONLY on the provided context if possible. If the answer is not in the context, state that."
)

type ResearchConfig struct {
	AbstractChars     int
	EmbeddingMaxChars int
	ContextPapers     int
	HistoryWindow     int
	MaxUploadBytes    int64
	DownloadTimeout   time.Duration
}

type ResearchDeps struct {
	Papers       PaperStore
	Workspaces   *WorkspaceService
	Conversation *Conversation
	Extractor    TextExtractor
	Embedder     embedding.Generator
	Responder    ai.Responder
	Archive      ObjectStore    // optional
	Events       EventPublisher // optional
	Logger       *logrus.Logger
}

// ResearchService runs the upload, import and question-answering pipelines.
type ResearchService struct {
	ResearchDeps
	cfg        ResearchConfig
	downloader *http.Client
}

func NewResearchService(deps ResearchDeps, cfg ResearchConfig) *ResearchService {
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 60 * time.Second
	}
	return &ResearchService{
		ResearchDeps: deps,
		cfg:          cfg,
		downloader:   &http.Client{Timeout: cfg.DownloadTimeout},
	}
}

type UploadInput struct {
	OwnerID     uint
	WorkspaceID *uint
	Filename    string
	Data        []byte
}

type ImportInput struct {
	OwnerID     uint
	WorkspaceID *uint
	PDFURL      string
	Title       string
}

type AskInput struct {
	UserID      uint
	WorkspaceID *uint
	Message     string
}

type AskResult struct {
	Response    string   `json:"response"`
	ContextUsed []string `json:"context_used"`
}

type ingestInput struct {
	ownerID   uint
	scope     model.Scope
	title     string
	filename  string
	source    string
	sourceURL string
	data      []byte
}

func (s *ResearchService) Upload(ctx context.Context, input UploadInput) (*model.Paper, error) {
	if !pdfextract.IsPDFName(input.Filename) {
		return nil, ErrNotPDF
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(input.Data)) > s.cfg.MaxUploadBytes {
		return nil, ErrFileTooLarge
	}
	if !pdfextract.LooksLikePDF(input.Data) {
		return nil, ErrNotPDF
	}
	scope, err := s.Workspaces.ResolveScope(ctx, input.OwnerID, input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, ingestInput{
		ownerID:  input.OwnerID,
		scope:    scope,
		title:    input.Filename,
		filename: input.Filename,
		source:   model.PaperSourceUpload,
		data:     input.Data,
	})
}

func (s *ResearchService) Import(ctx context.Context, input ImportInput) (*model.Paper, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}
	u, err := url.Parse(strings.TrimSpace(input.PDFURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrDownloadFailed
	}
	scope, err := s.Workspaces.ResolveScope(ctx, input.OwnerID, input.WorkspaceID)
	if err != nil {
		return nil, err
	}

	data, err := s.download(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if !pdfextract.LooksLikePDF(data) {
		return nil, ErrNotPDF
	}
	return s.ingest(ctx, ingestInput{
		ownerID:   input.OwnerID,
		scope:     scope,
		title:     title,
		filename:  path.Base(u.Path),
		source:    model.PaperSourceImport,
		sourceURL: u.String(),
		data:      data,
	})
}

func (s *ResearchService) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, ErrDownloadFailed
	}
	resp, err := s.downloader.Do(req)
	if err != nil {
		s.Logger.WithError(err).WithField("url", rawURL).Warn("pdf download failed")
		return nil, ErrDownloadFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.Logger.WithFields(logrus.Fields{"url": rawURL, "status": resp.StatusCode}).Warn("pdf download rejected")
		return nil, ErrDownloadFailed
	}

	body := io.Reader(resp.Body)
	if s.cfg.MaxUploadBytes > 0 {
		body = io.LimitReader(resp.Body, s.cfg.MaxUploadBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		s.Logger.WithError(err).WithField("url", rawURL).Warn("pdf download interrupted")
		return nil, ErrDownloadFailed
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

func (s *ResearchService) ingest(ctx context.Context, in ingestInput) (*model.Paper, error) {
	text := s.Extractor.ExtractText(in.data)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyExtraction
	}

	vec, err := s.Embedder.Embed(ctx, embedding.Truncate(text, s.cfg.EmbeddingMaxChars))
	if err != nil {
		return nil, fmt.Errorf("embed paper failed: %w", err)
	}

	metadata, err := json.Marshal(map[string]interface{}{
		"text_chars":      len([]rune(text)),
		"embedding_model": s.Embedder.ModelName(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal paper metadata failed: %w", err)
	}

	paper := &model.Paper{
		Title:            in.title,
		Authors:          model.UnknownAuthors,
		Abstract:         embedding.Truncate(text, s.cfg.AbstractChars) + abstractSuffix,
		Content:          text,
		OwnerID:          in.ownerID,
		WorkspaceID:      in.scope.WorkspaceRef(),
		Source:           in.source,
		SourceURL:        in.sourceURL,
		OriginalFilename: in.filename,
		ObjectKey:        s.archive(ctx, in.ownerID, in.data),
		SizeBytes:        int64(len(in.data)),
		Metadata:         datatypes.JSON(metadata),
	}
	paper.SetEmbedding(vec)
	if err := s.Papers.Create(ctx, paper); err != nil {
		s.discardArchive(ctx, paper.ObjectKey)
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{
		"paper_id": paper.ID,
		"owner_id": paper.OwnerID,
		"scope":    in.scope.String(),
		"source":   in.source,
	}).Info("paper stored")
	s.publish(ctx, EventPaperCreated, map[string]interface{}{
		"paper_id":     paper.ID,
		"owner_id":     paper.OwnerID,
		"workspace_id": paper.WorkspaceID,
		"source":       paper.Source,
	})
	return paper, nil
}

// archive stores the original bytes and returns the object key, or "" when
// archiving is disabled or fails.
func (s *ResearchService) archive(ctx context.Context, ownerID uint, data []byte) string {
	if s.Archive == nil {
		return ""
	}
	key := fmt.Sprintf("papers/%d/%s.pdf", ownerID, uuid.NewString())
	if err := s.Archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("archive pdf failed")
		return ""
	}
	return key
}

// discardArchive removes an archived object whose paper row was never written.
func (s *ResearchService) discardArchive(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Archive.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("delete orphaned pdf archive failed")
	}
}

// Ask answers from the caller's papers in scope. Exactly two messages are
// stored per call, the question then the answer; a failed model call stores
// the apology text as the answer.
func (s *ResearchService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Message)
	if question == "" {
		return nil, ErrMessageEmpty
	}
	scope, err := s.Workspaces.ResolveScope(ctx, input.UserID, input.WorkspaceID)
	if err != nil {
		return nil, err
	}

	papers, err := s.relevantPapers(ctx, input.UserID, scope, question)
	if err != nil {
		return nil, err
	}
	history, err := s.Conversation.Recent(ctx, input.UserID, scope, s.cfg.HistoryWindow)
	if err != nil {
		return nil, err
	}

	prompt := make([]ai.ChatMessage, 0, len(history)+2)
	prompt = append(prompt, ai.ChatMessage{Role: model.RoleSystem, Content: BuildSystemPrompt(papers)})
	for _, m := range history {
		prompt = append(prompt, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	prompt = append(prompt, ai.ChatMessage{Role: model.RoleUser, Content: input.Message})

	if _, err := s.Conversation.Append(ctx, input.UserID, scope, model.RoleUser, input.Message); err != nil {
		return nil, err
	}

	reply := s.Responder.Respond(ctx, prompt)
	if !reply.OK() {
		s.Logger.WithError(reply.Err).WithFields(logrus.Fields{
			"user_id": input.UserID,
			"scope":   scope.String(),
		}).Error("chat completion failed, replying with apology")
		s.publish(ctx, EventChatDegraded, map[string]interface{}{
			"user_id": input.UserID,
			"scope":   scope.String(),
			"reason":  reply.Err.Error(),
		})
	}

	// The question is already stored; the answer must follow even if the client left.
	if _, err := s.Conversation.Append(context.WithoutCancel(ctx), input.UserID, scope, model.RoleAssistant, reply.Content()); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(papers))
	for _, p := range papers {
		titles = append(titles, p.Title)
	}
	return &AskResult{Response: reply.Content(), ContextUsed: titles}, nil
}

// relevantPapers degrades to no context when the question cannot be embedded.
func (s *ResearchService) relevantPapers(ctx context.Context, userID uint, scope model.Scope, question string) ([]model.Paper, error) {
	if s.cfg.ContextPapers <= 0 {
		return nil, nil
	}
	vec, err := s.Embedder.Embed(ctx, embedding.Truncate(question, s.cfg.EmbeddingMaxChars))
	if err != nil {
		s.Logger.WithError(err).Warn("embed question failed, answering without paper context")
		return nil, nil
	}
	return s.Papers.SearchSimilar(ctx, userID, scope, vec, s.cfg.ContextPapers)
}

// BuildSystemPrompt lists each paper as a Title/Abstract block after the
// answering instructions.
func BuildSystemPrompt(papers []model.Paper) string {
	var b strings.Builder
	b.WriteString(systemPromptPrefix)
	b.WriteString("\n\nContext:\n")
	for _, p := range papers {
		fmt.Fprintf(&b, "Title: %s\nAbstract: %s\n\n", p.Title, p.Abstract)
	}
	return b.String()
}

func (s *ResearchService) ChatHistory(ctx context.Context, userID uint, workspaceID *uint) ([]model.ChatMessage, error) {
	scope, err := s.Workspaces.ResolveScope(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}
	return s.Conversation.History(ctx, userID, scope)
}

func (s *ResearchService) ListPapers(ctx context.Context, ownerID uint, workspaceID *uint) ([]model.Paper, error) {
	scope, err := s.Workspaces.ResolveScope(ctx, ownerID, workspaceID)
	if err != nil {
		return nil, err
	}
	return s.Papers.ListByScope(ctx, ownerID, scope)
}

func (s *ResearchService) publish(ctx context.Context, eventType string, data interface{}) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, eventType, data); err != nil {
		s.Logger.WithError(err).WithField("event", eventType).Warn("publish event failed")
	}
}
