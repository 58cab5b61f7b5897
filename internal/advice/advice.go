// Package advice generates travel guidance from weather data through an LLM.
// Two capabilities share one lazily-created client: creation-time advice (best
// effort, optional) and the interactive Q&A assistant (requires a credential).
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tripcast/weather-advisor/internal/apperr"
)

// answerFallback is returned verbatim when the provider yields an empty result.
const answerFallback = "No answer."

// maxWeatherJSON bounds the serialized snapshot included in the advice prompt.
const maxWeatherJSON = 6000

const adviceInstructions = "You are a concise travel weather assistant. " +
	"Write 3-6 short bullet points of practical advice (what to wear/bring, risks, timing). " +
	"Do not mention JSON. No fluff."

const answerInstructions = `You are a helpful travel weather assistant.

Use the provided structured weather data to answer the user's question.
Be concise but helpful.
Explain reasoning when comparing days.`

// Generator holds the LLM credential and the memoized client handle.
// The handle is created once on first use and reused for the process lifetime.
type Generator struct {
	apiKey      string
	adviceModel string
	answerModel string
	baseURL     string // overridden in tests
	logger      *slog.Logger

	once   sync.Once
	client *openai.Client
}

func NewGenerator(apiKey, adviceModel, answerModel string, logger *slog.Logger) *Generator {
	return &Generator{
		apiKey:      apiKey,
		adviceModel: adviceModel,
		answerModel: answerModel,
		logger:      logger,
	}
}

// Enabled reports whether an LLM credential is configured.
func (g *Generator) Enabled() bool {
	return g.apiKey != ""
}

func (g *Generator) handle() *openai.Client {
	g.once.Do(func() {
		cfg := openai.DefaultConfig(g.apiKey)
		if g.baseURL != "" {
			cfg.BaseURL = g.baseURL
		}
		g.client = openai.NewClientWithConfig(cfg)
	})
	return g.client
}

// TravelAdvice generates short creation-time guidance for a new request.
// Without a credential it returns empty advice and no error; advice is
// optional and must not block record creation.
func (g *Generator) TravelAdvice(ctx context.Context, locationName, startISO, endISO string, weather json.RawMessage) (string, error) {
	if !g.Enabled() {
		return "", nil
	}

	snapshot := string(weather)
	if len(snapshot) > maxWeatherJSON {
		snapshot = snapshot[:maxWeatherJSON]
	}
	input := fmt.Sprintf("Location: %s\nDate range: %s to %s\n\nWeather JSON (current snapshot):\n%s",
		locationName, startISO, endISO, snapshot)

	resp, err := g.handle().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.adviceModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: adviceInstructions},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
	})
	if err != nil {
		return "", fmt.Errorf("advice completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Answer responds to a free-text question given a JSON weather context.
// Unlike TravelAdvice, a missing credential or upstream failure surfaces as
// apperr.ErrUnavailable.
func (g *Generator) Answer(ctx context.Context, question string, contextJSON json.RawMessage) (string, error) {
	if !g.Enabled() {
		return "", fmt.Errorf("assistant credential not configured: %w", apperr.ErrUnavailable)
	}

	resp, err := g.handle().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.answerModel,
		Temperature: 0.6,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: answerInstructions},
			{Role: openai.ChatMessageRoleUser, Content: "Weather context:\n" + prettyJSON(contextJSON)},
			{Role: openai.ChatMessageRoleUser, Content: "Question: " + question},
		},
	})
	if err != nil {
		g.logger.Warn("answer completion failed", "error", err)
		return "", fmt.Errorf("answer completion: %v: %w", err, apperr.ErrUnavailable)
	}

	if len(resp.Choices) == 0 {
		return answerFallback, nil
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return answerFallback, nil
	}
	return answer, nil
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
