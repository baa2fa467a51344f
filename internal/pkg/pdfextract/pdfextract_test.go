package pdfextract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestExtractTextInvalidDocumentLogsAndReturnsEmpty(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ex, err := New("", logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if got := ex.ExtractText([]byte("definitely not a pdf")); got != "" {
		t.Fatalf("text = %q, want empty", got)
	}
	if len(hook.Entries) == 0 {
		t.Fatal("expected extraction failure to be logged")
	}
	if hook.LastEntry().Level != logrus.ErrorLevel {
		t.Fatalf("level = %v", hook.LastEntry().Level)
	}
}

func TestExtractTextEmpty(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ex, _ := New("", logger)
	if got := ex.ExtractText(nil); got != "" {
		t.Fatalf("text = %q", got)
	}
	if len(hook.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(hook.Entries))
	}
}

// buildPDF writes a minimal uncompressed PDF with one page per entry. An
// empty entry produces a page with an empty content stream.
func buildPDF(pages ...string) []byte {
	var objects []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		var content string
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractTextFromDocument(t *testing.T) {
	tests := []struct {
		name      string
		pages     []string
		want      string
		wantWarns int
	}{
		{"single page", []string{"Deep Learning Basics"}, "\nDeep Learning Basics\n", 0},
		{"pages joined by newline", []string{"Attention Is All You Need", "Transformers"}, "\nAttention Is All You Need\n\nTransformers\n", 0},
		{"text after blank page", []string{"", "Results"}, "\n\nResults\n", 0},
		{"blank page", []string{""}, "", 1},
		{"all pages blank", []string{"", ""}, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			ex, err := New("", logger)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			data := buildPDF(tt.pages...)
			if !LooksLikePDF(data) {
				t.Fatal("generated document not detected as pdf")
			}

			if got := ex.ExtractText(data); got != tt.want {
				t.Fatalf("text = %q, want %q", got, tt.want)
			}
			if len(hook.Entries) != tt.wantWarns {
				t.Fatalf("entries = %d, want %d: %v", len(hook.Entries), tt.wantWarns, hook.AllEntries())
			}
			if tt.wantWarns > 0 {
				entry := hook.LastEntry()
				if entry.Level != logrus.WarnLevel || !strings.Contains(entry.Message, "extracted text is empty") {
					t.Fatalf("unexpected entry %v %q", entry.Level, entry.Message)
				}
				if entry.Data["pages"] != len(tt.pages) {
					t.Fatalf("pages field = %v", entry.Data["pages"])
				}
			}
		})
	}
}

func TestErrorLogFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pdf_errors.log")
	ex, err := New(path, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ex.ExtractText([]byte("junk"))
	ex.ExtractText([]byte("more junk"))
	if err := ex.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if n := strings.Count(string(raw), "open document failed"); n != 2 {
		t.Fatalf("logged failures = %d, want 2\n%s", n, raw)
	}
}

func TestIsPDFName(t *testing.T) {
	tests := map[string]bool{
		"paper.pdf":    true,
		"PAPER.PDF":    true,
		"notes.txt":    false,
		"pdf":          false,
		"archive.pdfx": false,
	}
	for name, want := range tests {
		if got := IsPDFName(name); got != want {
			t.Errorf("IsPDFName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLooksLikePDF(t *testing.T) {
	if !LooksLikePDF([]byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n")) {
		t.Fatal("expected pdf header to be detected")
	}
	if LooksLikePDF([]byte("hello world")) {
		t.Fatal("plain text detected as pdf")
	}
}
