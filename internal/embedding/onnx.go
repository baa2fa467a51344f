package embedding

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	inputIDsName      = "input_ids"
	attentionMaskName = "attention_mask"
	tokenTypeIDsName  = "token_type_ids"
)

type ONNXOptions struct {
	ModelPath     string
	TokenizerPath string
	SharedLibPath string
	MaxTokens     int
	Dimensions    int
}

// ONNXGenerator runs a sentence-transformers model (all-MiniLM-L6-v2) through
// onnxruntime. The session is created once and shared; each call allocates its
// own tensors, so Embed runs concurrently.
type ONNXGenerator struct {
	opts       ONNXOptions
	tokenizer  *Tokenizer
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	logger     *logrus.Logger
}

func NewONNXGenerator(opts ONNXOptions, logger *logrus.Logger) (*ONNXGenerator, error) {
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}
	tokenizer, err := LoadTokenizer(opts.TokenizerPath, opts.MaxTokens)
	if err != nil {
		return nil, err
	}

	if opts.SharedLibPath != "" {
		ort.SetSharedLibraryPath(opts.SharedLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx model has no inputs or outputs")
	}
	inputNames := make([]string, 0, len(inputs))
	for _, in := range inputs {
		switch in.Name {
		case inputIDsName, attentionMaskName, tokenTypeIDsName:
			inputNames = append(inputNames, in.Name)
		default:
			return nil, fmt.Errorf("onnx model has unsupported input %q", in.Name)
		}
	}
	outputName := outputs[0].Name

	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx new session: %w", err)
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"model":     opts.ModelPath,
			"tokenizer": opts.TokenizerPath,
			"inputs":    inputNames,
			"output":    outputName,
		}).Info("onnx embedding model loaded")
	}
	return &ONNXGenerator{
		opts:       opts,
		tokenizer:  tokenizer,
		session:    session,
		inputNames: inputNames,
		outputName: outputName,
		logger:     logger,
	}, nil
}

func (g *ONNXGenerator) Dimensions() int   { return g.opts.Dimensions }
func (g *ONNXGenerator) ModelName() string { return g.opts.ModelPath }

func (g *ONNXGenerator) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc, err := g.tokenizer.Encode(text)
	if err != nil {
		return nil, err
	}
	seqLen := int64(len(enc.InputIDs))
	shape := ort.NewShape(1, seqLen)

	byName := map[string][]int64{
		inputIDsName:      enc.InputIDs,
		attentionMaskName: enc.AttentionMask,
		tokenTypeIDsName:  enc.TokenTypeIDs,
	}
	inputs := make([]ort.Value, 0, len(g.inputNames))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, name := range g.inputNames {
		t, err := ort.NewTensor(shape, byName[name])
		if err != nil {
			return nil, fmt.Errorf("onnx new %s tensor: %w", name, err)
		}
		inputs = append(inputs, t)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(g.opts.Dimensions)))
	if err != nil {
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}
	defer output.Destroy()

	if err := g.session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	vec := meanPool(output.GetData(), enc.AttentionMask, g.opts.Dimensions)
	normalize(vec)
	if err := checkDimensions(vec, g.opts.Dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}

func (g *ONNXGenerator) Close() error {
	if g.session == nil {
		return nil
	}
	return g.session.Destroy()
}

// meanPool averages the token vectors in hidden ([seq, dim], row-major)
// whose attention mask is set.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for d, v := range row {
			out[d] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}
