package embedding

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"github.com/sugarme/tokenizer/processor"
)

const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenUNK = "[UNK]"
)

// Encoding is the model input for one sequence.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// Tokenizer wraps a HuggingFace tokenizer and caps every sequence at maxLen
// tokens, special tokens included.
type Tokenizer struct {
	tk     *tokenizer.Tokenizer
	maxLen int
	sepID  int64
}

// LoadTokenizer reads a HuggingFace tokenizer.json, as shipped next to the
// sentence-transformers ONNX export. A .txt path is read as a WordPiece vocab.
func LoadTokenizer(path string, maxLen int) (*Tokenizer, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return loadWordPieceVocab(path, maxLen)
	}
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s failed: %w", path, err)
	}
	return newTokenizer(tk, maxLen)
}

// loadWordPieceVocab builds an uncased BERT tokenizer from a vocab.txt, for
// exports that ship no tokenizer.json.
func loadWordPieceVocab(vocabPath string, maxLen int) (*Tokenizer, error) {
	model, err := wordpiece.NewWordPieceFromFile(vocabPath, tokenUNK)
	if err != nil {
		return nil, fmt.Errorf("load vocab %s failed: %w", vocabPath, err)
	}
	tk := tokenizer.NewTokenizer(model)
	tk.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	tk.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	clsID, ok := tk.TokenToId(tokenCLS)
	if !ok {
		return nil, fmt.Errorf("vocab is missing %s", tokenCLS)
	}
	sepID, ok := tk.TokenToId(tokenSEP)
	if !ok {
		return nil, fmt.Errorf("vocab is missing %s", tokenSEP)
	}
	tk.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Id: sepID, Value: tokenSEP},
		processor.PostToken{Id: clsID, Value: tokenCLS},
	))
	return newTokenizer(tk, maxLen)
}

func newTokenizer(tk *tokenizer.Tokenizer, maxLen int) (*Tokenizer, error) {
	if maxLen < 2 {
		return nil, fmt.Errorf("max tokens must be at least 2, got %d", maxLen)
	}
	sepID, ok := tk.TokenToId(tokenSEP)
	if !ok {
		return nil, fmt.Errorf("tokenizer has no %s token", tokenSEP)
	}
	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxLen,
		Strategy:  tokenizer.LongestFirst,
	})
	return &Tokenizer{tk: tk, maxLen: maxLen, sepID: int64(sepID)}, nil
}

// Encode returns [CLS] pieces... [SEP] for text, truncated to maxLen.
func (t *Tokenizer) Encode(text string) (Encoding, error) {
	en, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return Encoding{}, fmt.Errorf("tokenize failed: %w", err)
	}
	ids := toInt64(en.Ids)
	mask := toInt64(en.AttentionMask)
	types := toInt64(en.TypeIds)
	if len(ids) > t.maxLen {
		ids, mask, types = ids[:t.maxLen], mask[:t.maxLen], types[:t.maxLen]
		ids[t.maxLen-1] = t.sepID
	}
	return Encoding{InputIDs: ids, AttentionMask: mask, TokenTypeIDs: types}, nil
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
