// Package pdfextract turns uploaded PDF bytes into plain text.
package pdfextract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

const pdfMIME = "application/pdf"

// Extractor never fails: unreadable documents and broken pages are logged to
// the error log and contribute no text.
type Extractor struct {
	errLog *logrus.Logger
	file   *os.File
}

// New opens errorLogPath in append mode for extraction failures. An empty
// path sends failures to errLogger instead.
func New(errorLogPath string, errLogger *logrus.Logger) (*Extractor, error) {
	if errorLogPath == "" {
		if errLogger == nil {
			errLogger = logrus.New()
		}
		return &Extractor{errLog: errLogger}, nil
	}
	if dir := filepath.Dir(errorLogPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create pdf error log dir failed: %w", err)
		}
	}
	f, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open pdf error log failed: %w", err)
	}
	l := logrus.New()
	l.SetOutput(f)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return &Extractor{errLog: l, file: f}, nil
}

func (e *Extractor) Close() error {
	if e.file == nil {
		return nil
	}
	return e.file.Close()
}

// ExtractText concatenates the text of every page, each followed by a newline.
// It returns "" when nothing could be read, including documents whose pages
// carry no text.
func (e *Extractor) ExtractText(data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.errLog.WithField("panic", r).Error("pdf extraction aborted")
			text = ""
		}
	}()
	if len(data) == 0 {
		e.errLog.Error("pdf extraction: empty document")
		return ""
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.errLog.WithError(err).Error("pdf extraction: open document failed")
		return ""
	}

	var b strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		b.WriteString(e.pageText(reader, i))
		b.WriteString("\n")
	}
	if strings.TrimSpace(b.String()) == "" {
		e.errLog.WithField("pages", total).Warn("pdf extraction: extracted text is empty")
		return ""
	}
	return b.String()
}

func (e *Extractor) pageText(reader *pdf.Reader, index int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.errLog.WithFields(logrus.Fields{"page": index, "panic": r}).Error("pdf page extraction aborted")
			text = ""
		}
	}()
	page := reader.Page(index)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		e.errLog.WithError(err).WithField("page", index).Error("pdf page extraction failed")
		return ""
	}
	return content
}

// IsPDFName reports whether filename carries a .pdf extension, in any case.
func IsPDFName(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// LooksLikePDF sniffs the content type of data.
func LooksLikePDF(data []byte) bool {
	return mimetype.Detect(data).Is(pdfMIME)
}
