package ai

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"telegram-ai-proxy/internal/domain/model"
)

// perMessageOverhead approximates the role/separator tokens the chat format
// adds around every message.
const perMessageOverhead = 4

var encoders sync.Map // model -> *encoderEntry

// encoderEntry is filled in once by a background load. tiktoken fetches BPE
// ranks over the network on first use, so callers never wait for it.
type encoderEntry struct {
	ready chan struct{}
	enc   *tiktoken.Tiktoken // nil when the model is unknown or the load failed
}

func (e *encoderEntry) load(modelName string) {
	defer close(e.ready)
	if enc, err := tiktoken.EncodingForModel(modelName); err == nil {
		e.enc = enc
	}
}

// encoderFor returns the model's encoder, or nil while it is still loading.
func encoderFor(modelName string) *tiktoken.Tiktoken {
	v, loaded := encoders.LoadOrStore(modelName, &encoderEntry{ready: make(chan struct{})})
	e := v.(*encoderEntry)
	if !loaded {
		go e.load(modelName)
	}
	select {
	case <-e.ready:
		return e.enc
	default:
		return nil
	}
}

// CountTokens estimates prompt tokens for messages. Models tiktoken knows are
// counted exactly once their encoding is loaded; until then, and for
// everything else (llama, gemini, ...), it falls back to about four
// characters per token.
func CountTokens(modelName string, messages []model.Message) int {
	enc := encoderFor(modelName)
	total := 0
	for _, m := range messages {
		total += perMessageOverhead
		if enc != nil {
			total += len(enc.Encode(m.Content, nil, nil))
			continue
		}
		total += estimateTokens(m.Content)
	}
	return total
}

func estimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
