package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/taskdeck/taskdeck/pkg/domain"
)

// DefaultHistoryBudget bounds the estimated token cost of history sent to
// the model per turn.
const DefaultHistoryBudget = 2000

var (
	tokenEncoder *tiktoken.Tiktoken
	encoderOnce  sync.Once
	encoderErr   error
)

func initTokenEncoder() error {
	encoderOnce.Do(func() {
		// cl100k_base covers the GPT-3.5/4 family and is close enough as a
		// cost proxy for other providers.
		tokenEncoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoderErr
}

// EstimateTokens estimates the token cost of a text. Falls back to a
// bytes/4 heuristic when the encoder cannot load.
func EstimateTokens(text string) int {
	if err := initTokenEncoder(); err != nil {
		return len(text)/4 + 1
	}
	return len(tokenEncoder.Encode(text, nil, nil))
}

// EstimateMessageTokens estimates the cost of one message including its
// per-message formatting overhead (role markers etc.).
func EstimateMessageTokens(msg domain.Message) int {
	return 4 + EstimateTokens(string(msg.Role)) + EstimateTokens(msg.Content)
}

// TruncateHistory drops whole messages from the oldest end until the
// cumulative estimate fits the budget. Messages are never split. The newest
// message is always kept, even when it alone exceeds the budget; in that
// degenerate case the result is just the newest message.
func TruncateHistory(messages []domain.Message, budget int) []domain.Message {
	if len(messages) == 0 {
		return messages
	}

	total := 0
	cut := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		cost := EstimateMessageTokens(messages[i])
		if total+cost > budget {
			break
		}
		total += cost
		cut = i
	}

	// Degenerate case: the newest message alone blows the budget. Keep it.
	if cut == len(messages) {
		cut = len(messages) - 1
	}

	return messages[cut:]
}
