package ai

import (
	"context"
	"errors"
	"strings"
)

// ApologyMessage is shown to the user whenever the model call fails.
const ApologyMessage = "I apologize, but I encountered an error while processing your request."

var ErrEmptyCompletion = errors.New("llm returned empty content")

// Reply is the outcome of one chat completion. Exactly one of Text and Err is set.
type Reply struct {
	Text string
	Err  error
}

func (r Reply) OK() bool {
	return r.Err == nil
}

// Content is the text to show and persist: the model output, or the apology.
func (r Reply) Content() string {
	if r.Err != nil {
		return ApologyMessage
	}
	return r.Text
}

type Responder interface {
	Respond(ctx context.Context, messages []ChatMessage) Reply
}

type completer interface {
	Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error)
}

// ChatResponder never returns an error; failures come back inside the Reply.
type ChatResponder struct {
	client completer
	cfg    ChatConfig
}

func NewChatResponder(client *OpenAICompatibleClient, cfg ChatConfig) *ChatResponder {
	return &ChatResponder{client: client, cfg: cfg}
}

func (r *ChatResponder) Respond(ctx context.Context, messages []ChatMessage) Reply {
	text, err := r.client.Complete(ctx, r.cfg, messages)
	if err != nil {
		return Reply{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Reply{Err: ErrEmptyCompletion}
	}
	return Reply{Text: text}
}
