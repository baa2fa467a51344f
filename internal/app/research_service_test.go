package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"researchhub/internal/ai"
	"researchhub/internal/model"
)

func TestUploadStoresPaper(t *testing.T) {
	env := newTestEnv(t)
	body := strings.Repeat("é", 1200)

	paper, err := env.research.Upload(context.Background(), UploadInput{
		OwnerID:  1,
		Filename: "attention.pdf",
		Data:     pdfBytes(body),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if paper.ID == 0 || paper.Title != "attention.pdf" || paper.Authors != model.UnknownAuthors {
		t.Fatalf("unexpected paper %+v", paper)
	}
	if want := strings.Repeat("é", 1000) + "..."; paper.Abstract != want {
		t.Fatalf("abstract has %d runes, want 1003", utf8.RuneCountInString(paper.Abstract))
	}
	if got := len(paper.EmbeddingVector()); got != testDims {
		t.Fatalf("embedding dims = %d", got)
	}
	if paper.WorkspaceID != nil || paper.Source != model.PaperSourceUpload {
		t.Fatalf("workspace/source = %v/%s", paper.WorkspaceID, paper.Source)
	}
	if _, ok := env.archive.objects[paper.ObjectKey]; !ok || !strings.HasPrefix(paper.ObjectKey, "papers/1/") {
		t.Fatalf("pdf not archived under %q", paper.ObjectKey)
	}
	if types := env.events.types(); len(types) != 1 || types[0] != EventPaperCreated {
		t.Fatalf("events = %v", types)
	}
}

func TestUploadShortTextStillGetsSuffix(t *testing.T) {
	env := newTestEnv(t)
	paper, err := env.research.Upload(context.Background(), UploadInput{OwnerID: 1, Filename: "a.pdf", Data: pdfBytes("tiny")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if paper.Abstract != "tiny..." {
		t.Fatalf("abstract = %q", paper.Abstract)
	}
}

func TestUploadArchiveFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.archive.err = errors.New("bucket gone")
	paper, err := env.research.Upload(context.Background(), UploadInput{OwnerID: 1, Filename: "a.pdf", Data: pdfBytes("text")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if paper.ObjectKey != "" {
		t.Fatalf("object key = %q, want empty", paper.ObjectKey)
	}
}

type failingPapers struct {
	PaperStore
	err error
}

func (p failingPapers) Create(context.Context, *model.Paper) error { return p.err }

func TestUploadRemovesArchiveWhenInsertFails(t *testing.T) {
	env := newTestEnv(t)
	insertErr := errors.New("insert failed")
	env.research.Papers = failingPapers{PaperStore: env.store.Papers(), err: insertErr}

	_, err := env.research.Upload(context.Background(), UploadInput{OwnerID: 1, Filename: "a.pdf", Data: pdfBytes("text")})
	if !errors.Is(err, insertErr) {
		t.Fatalf("err = %v, want %v", err, insertErr)
	}
	if n := len(env.archive.objects); n != 0 {
		t.Fatalf("%d archived objects left behind", n)
	}
	if types := env.events.types(); len(types) != 0 {
		t.Fatalf("events = %v", types)
	}
}

func TestUploadRejects(t *testing.T) {
	env := newTestEnv(t)
	other := env.mustWorkspace(t, 2, "someone else's")

	tests := []struct {
		name  string
		input UploadInput
		want  error
	}{
		{"wrong extension", UploadInput{OwnerID: 1, Filename: "notes.txt", Data: pdfBytes("text")}, ErrNotPDF},
		{"not pdf content", UploadInput{OwnerID: 1, Filename: "fake.pdf", Data: []byte("plain text")}, ErrNotPDF},
		{"empty extraction", UploadInput{OwnerID: 1, Filename: "scan.pdf", Data: pdfBytes("  \n\t ")}, ErrEmptyExtraction},
		{"too large", UploadInput{OwnerID: 1, Filename: "big.pdf", Data: pdfBytes(strings.Repeat("x", 1<<20))}, ErrFileTooLarge},
		{"unknown workspace", UploadInput{OwnerID: 1, WorkspaceID: ref(999), Filename: "a.pdf", Data: pdfBytes("x")}, ErrWorkspaceNotFound},
		{"foreign workspace", UploadInput{OwnerID: 1, WorkspaceID: ref(other), Filename: "a.pdf", Data: pdfBytes("x")}, ErrWorkspaceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.research.Upload(context.Background(), tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	papers, _ := env.research.ListPapers(context.Background(), 1, nil)
	if len(papers) != 0 {
		t.Fatalf("rejected uploads stored %d papers", len(papers))
	}
}

func TestUploadZeroWorkspaceMeansGlobal(t *testing.T) {
	env := newTestEnv(t)
	env.mustUpload(t, 1, ref(0), "a.pdf", "global text")
	papers, _ := env.research.ListPapers(context.Background(), 1, nil)
	if len(papers) != 1 || papers[0].WorkspaceID != nil {
		t.Fatalf("papers = %+v", papers)
	}
}

func TestImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pdf/1706.03762":
			_, _ = w.Write(pdfBytes("attention transformer encoder decoder"))
		case "/html":
			_, _ = w.Write([]byte("<html><body>not a pdf</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	env := newTestEnv(t)
	ws := env.mustWorkspace(t, 1, "nlp")

	paper, err := env.research.Import(context.Background(), ImportInput{
		OwnerID:     1,
		WorkspaceID: ref(ws),
		PDFURL:      srv.URL + "/pdf/1706.03762",
		Title:       "Attention Is All You Need",
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if paper.Title != "Attention Is All You Need" || paper.Source != model.PaperSourceImport || paper.SourceURL == "" {
		t.Fatalf("paper = %+v", paper)
	}
	if paper.WorkspaceID == nil || *paper.WorkspaceID != ws {
		t.Fatalf("workspace = %v", paper.WorkspaceID)
	}

	failures := []struct {
		name  string
		input ImportInput
		want  error
	}{
		{"not found", ImportInput{OwnerID: 1, PDFURL: srv.URL + "/missing.pdf", Title: "x"}, ErrDownloadFailed},
		{"unreachable", ImportInput{OwnerID: 1, PDFURL: "http://127.0.0.1:1/x.pdf", Title: "x"}, ErrDownloadFailed},
		{"bad scheme", ImportInput{OwnerID: 1, PDFURL: "ftp://example.org/x.pdf", Title: "x"}, ErrDownloadFailed},
		{"html body", ImportInput{OwnerID: 1, PDFURL: srv.URL + "/html", Title: "x"}, ErrNotPDF},
		{"missing title", ImportInput{OwnerID: 1, PDFURL: srv.URL + "/pdf/1706.03762", Title: " "}, ErrInvalidInput},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.research.Import(context.Background(), tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAskWritesQuestionThenAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.mustUpload(t, 1, nil, "backprop.pdf", "backpropagation computes gradients through the network")

	res, err := env.research.Ask(context.Background(), AskInput{UserID: 1, Message: "How does backpropagation compute gradients?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if res.Response != "Here is what the papers say." {
		t.Fatalf("response = %q", res.Response)
	}
	if len(res.ContextUsed) != 1 || res.ContextUsed[0] != "backprop.pdf" {
		t.Fatalf("context_used = %v", res.ContextUsed)
	}

	history, _ := env.research.ChatHistory(context.Background(), 1, nil)
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}
	if history[0].Role != model.RoleUser || history[0].Content != "How does backpropagation compute gradients?" {
		t.Fatalf("first message = %+v", history[0])
	}
	if history[1].Role != model.RoleAssistant || history[1].Content != res.Response {
		t.Fatalf("second message = %+v", history[1])
	}

	prompt := env.responder.lastPrompt()
	if prompt[0].Role != model.RoleSystem || !strings.Contains(prompt[0].Content, "Title: backprop.pdf\nAbstract: backpropagation") {
		t.Fatalf("system prompt = %q", prompt[0].Content)
	}
	if last := prompt[len(prompt)-1]; last.Role != model.RoleUser || last.Content != "How does backpropagation compute gradients?" {
		t.Fatalf("last prompt message = %+v", last)
	}
}

func TestAskWithoutPapers(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.research.Ask(context.Background(), AskInput{UserID: 1, Message: "What is backpropagation?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if res.ContextUsed == nil || len(res.ContextUsed) != 0 {
		t.Fatalf("context_used = %#v, want empty list", res.ContextUsed)
	}
	prompt := env.responder.lastPrompt()
	if want := systemPromptPrefix + "\n\nContext:\n"; prompt[0].Content != want {
		t.Fatalf("system prompt = %q", prompt[0].Content)
	}
	if len(prompt) != 2 {
		t.Fatalf("prompt len = %d, want system + user", len(prompt))
	}
}

func TestAskResponderFailureStoresApology(t *testing.T) {
	env := newTestEnv(t)
	env.responder.reply = ai.Reply{Err: errors.New("groq unavailable")}

	res, err := env.research.Ask(context.Background(), AskInput{UserID: 1, Message: "anything?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if res.Response != ai.ApologyMessage {
		t.Fatalf("response = %q", res.Response)
	}
	history, _ := env.research.ChatHistory(context.Background(), 1, nil)
	if len(history) != 2 || history[1].Content != ai.ApologyMessage {
		t.Fatalf("history = %+v", history)
	}
	if types := env.events.types(); len(types) != 1 || types[0] != EventChatDegraded {
		t.Fatalf("events = %v", types)
	}
	if env.logs.LastEntry() == nil || env.logs.LastEntry().Message != "chat completion failed, replying with apology" {
		t.Fatalf("expected failure to be logged")
	}
}

func TestAskEmbeddingFailureDegradesToNoContext(t *testing.T) {
	env := newTestEnv(t)
	env.mustUpload(t, 1, nil, "a.pdf", "graph networks")
	env.research.Embedder = keywordEmbedder{err: errors.New("model offline")}

	res, err := env.research.Ask(context.Background(), AskInput{UserID: 1, Message: "graph networks?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(res.ContextUsed) != 0 {
		t.Fatalf("context_used = %v", res.ContextUsed)
	}
}

func TestAskRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.research.Ask(context.Background(), AskInput{UserID: 1, Message: "   "}); !errors.Is(err, ErrMessageEmpty) {
		t.Fatalf("err = %v", err)
	}
	history, _ := env.research.ChatHistory(context.Background(), 1, nil)
	if len(history) != 0 {
		t.Fatalf("stored %d messages", len(history))
	}
}

func TestAskScopeIsolation(t *testing.T) {
	env := newTestEnv(t)
	wsA := env.mustWorkspace(t, 1, "A")
	wsB := env.mustWorkspace(t, 1, "B")
	env.mustUpload(t, 1, ref(wsA), "in-a.pdf", "quantum error correction codes")
	env.mustUpload(t, 2, nil, "other-user.pdf", "quantum error correction codes")

	for _, tc := range []struct {
		name string
		ws   *uint
		want int
	}{
		{"global", nil, 0},
		{"workspace b", ref(wsB), 0},
		{"workspace a", ref(wsA), 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := env.research.Ask(context.Background(), AskInput{UserID: 1, WorkspaceID: tc.ws, Message: "quantum error correction?"})
			if err != nil {
				t.Fatalf("ask: %v", err)
			}
			if len(res.ContextUsed) != tc.want {
				t.Fatalf("context_used = %v, want %d titles", res.ContextUsed, tc.want)
			}
		})
	}

	globalHistory, _ := env.research.ChatHistory(context.Background(), 1, nil)
	aHistory, _ := env.research.ChatHistory(context.Background(), 1, ref(wsA))
	if len(globalHistory) != 2 || len(aHistory) != 2 {
		t.Fatalf("history global=%d a=%d, want 2 each", len(globalHistory), len(aHistory))
	}
}

func TestAskUsesTopThreePapers(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"one.pdf", "two.pdf", "three.pdf", "four.pdf"} {
		env.mustUpload(t, 1, nil, name, "diffusion models "+name)
	}
	res, err := env.research.Ask(context.Background(), AskInput{UserID: 1, Message: "diffusion models"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(res.ContextUsed) != 3 {
		t.Fatalf("context_used = %v", res.ContextUsed)
	}
}

func TestAskHistoryWindow(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 4; i++ {
		if _, err := env.research.Ask(context.Background(), AskInput{UserID: 1, Message: "question"}); err != nil {
			t.Fatalf("ask %d: %v", i, err)
		}
	}
	prompt := env.responder.lastPrompt()
	// system + last five stored messages + new question
	if len(prompt) != 7 {
		t.Fatalf("prompt len = %d, want 7", len(prompt))
	}
	if prompt[1].Role != model.RoleAssistant || prompt[2].Role != model.RoleUser || prompt[5].Role != model.RoleAssistant {
		t.Fatalf("history window not chronological: %+v", prompt)
	}
}

func TestListPapersNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	first := env.mustUpload(t, 1, nil, "first.pdf", "a")
	second := env.mustUpload(t, 1, nil, "second.pdf", "b")
	papers, err := env.research.ListPapers(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(papers) != 2 || papers[0].ID != second || papers[1].ID != first {
		t.Fatalf("order = %d,%d", papers[0].ID, papers[1].ID)
	}
	if _, err := env.research.ListPapers(context.Background(), 1, ref(42)); !errors.Is(err, ErrWorkspaceNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	got := BuildSystemPrompt([]model.Paper{
		{Title: "A", Abstract: "aa..."},
		{Title: "B", Abstract: "bb..."},
	})
	want := systemPromptPrefix + "\n\nContext:\nTitle: A\nAbstract: aa...\n\nTitle: B\nAbstract: bb...\n\n"
	if got != want {
		t.Fatalf("prompt = %q", got)
	}
}
