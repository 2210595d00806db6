package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sburbterm/internal/observability"
)

const loreSystemPrompt = `You are the narrator of a terminal session of a reality-bending cooperative game.
Answer questions about the game's lore in the voice of a laid-back, cryptic narrator.
Keep answers to two or three sentences of plain text. No markdown, no lists.
Never break character and never mention being a model.`

// LoreMaxTokens bounds the oracle's answers.
const LoreMaxTokens = 400

// Lore answers a lore question about topic. Any game context attached with
// observability.WithGameContext is folded into the prompt.
func (s *Service) Lore(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("lore: empty topic")
	}
	ctx = WithOperationType(ctx, "llm.lore")
	text, err := s.CompleteText(ctx, TextCompletionRequest{
		SystemPrompt:    loreSystemPrompt,
		UserPrompt:      lorePrompt(topic, observability.GameContextFrom(ctx)),
		MaxTokens:       LoreMaxTokens,
		ReasoningEffort: "minimal",
	})
	if err != nil {
		return "", fmt.Errorf("lore %q: %w", topic, err)
	}
	return text, nil
}

func lorePrompt(topic string, gameCtx map[string]any) string {
	var b strings.Builder
	if len(gameCtx) > 0 {
		keys := make([]string, 0, len(gameCtx))
		for k := range gameCtx {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Player context:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, gameCtx[k])
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Tell me about: %s", topic)
	return b.String()
}
