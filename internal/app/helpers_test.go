package app

import (
	"context"
	"hash/fnv"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"researchhub/internal/ai"
	"researchhub/internal/cache"
	"researchhub/internal/repository/memory"
)

const testDims = 384

const pdfHeader = "%PDF-1.4\n"

// pdfBytes builds content that sniffs as PDF; fakeExtractor returns the body.
func pdfBytes(body string) []byte {
	return []byte(pdfHeader + body)
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractText(data []byte) string {
	return strings.TrimPrefix(string(data), pdfHeader)
}

// keywordEmbedder hashes words into buckets so texts sharing words are close.
type keywordEmbedder struct {
	err error
}

func (e keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, testDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		vec[h.Sum32()%testDims]++
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum > 0 {
		n := float32(math.Sqrt(sum))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func (keywordEmbedder) Dimensions() int   { return testDims }
func (keywordEmbedder) ModelName() string { return "keyword-test" }

type fakeResponder struct {
	mu      sync.Mutex
	reply   ai.Reply
	prompts [][]ai.ChatMessage
}

func (r *fakeResponder) Respond(_ context.Context, messages []ai.ChatMessage) ai.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, append([]ai.ChatMessage(nil), messages...))
	return r.reply
}

func (r *fakeResponder) lastPrompt() []ai.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.prompts) == 0 {
		return nil
	}
	return r.prompts[len(r.prompts)-1]
}

type publishedEvent struct {
	Type string
	Data interface{}
}

type fakeEvents struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (e *fakeEvents) Publish(_ context.Context, eventType string, data interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, publishedEvent{Type: eventType, Data: data})
	return nil
}

func (e *fakeEvents) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (a *fakeArchive) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if a.err != nil {
		return a.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = make(map[string][]byte)
	}
	a.objects[key] = b
	return nil
}

func (a *fakeArchive) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, key)
	return nil
}

type testEnv struct {
	store        *memory.Store
	redis        *miniredis.Miniredis
	logger       *logrus.Logger
	logs         *test.Hook
	responder    *fakeResponder
	events       *fakeEvents
	archive      *fakeArchive
	auth         *AuthService
	workspaces   *WorkspaceService
	conversation *Conversation
	research     *ResearchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger, hook := test.NewNullLogger()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore(testDims)
	env := &testEnv{
		store:     store,
		redis:     mr,
		logger:    logger,
		logs:      hook,
		responder: &fakeResponder{reply: ai.Reply{Text: "Here is what the papers say."}},
		events:    &fakeEvents{},
		archive:   &fakeArchive{},
	}
	env.auth = NewAuthService(store.Users(), "test-secret", time.Hour)
	env.conversation = NewConversation(store.Messages(), cache.NewHistoryCache(client, time.Minute), logger)
	env.workspaces = NewWorkspaceService(store.Workspaces(), env.conversation, env.events, logger)
	env.research = NewResearchService(ResearchDeps{
		Papers:       store.Papers(),
		Workspaces:   env.workspaces,
		Conversation: env.conversation,
		Extractor:    fakeExtractor{},
		Embedder:     keywordEmbedder{},
		Responder:    env.responder,
		Archive:      env.archive,
		Events:       env.events,
		Logger:       logger,
	}, ResearchConfig{
		AbstractChars:     1000,
		EmbeddingMaxChars: 8000,
		ContextPapers:     3,
		HistoryWindow:     5,
		MaxUploadBytes:    1 << 20,
		DownloadTimeout:   time.Second,
	})
	return env
}

func (env *testEnv) mustWorkspace(t *testing.T, ownerID uint, name string) uint {
	t.Helper()
	w, err := env.workspaces.Create(context.Background(), CreateWorkspaceInput{OwnerID: ownerID, Name: name})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return w.ID
}

func (env *testEnv) mustUpload(t *testing.T, ownerID uint, workspaceID *uint, filename, body string) uint {
	t.Helper()
	p, err := env.research.Upload(context.Background(), UploadInput{
		OwnerID:     ownerID,
		WorkspaceID: workspaceID,
		Filename:    filename,
		Data:        pdfBytes(body),
	})
	if err != nil {
		t.Fatalf("upload %s: %v", filename, err)
	}
	return p.ID
}

func ref(v uint) *uint { return &v }
