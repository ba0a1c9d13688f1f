// Package responder implements the external reply generator behind the
// session manager's Responder interface.
package responder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog/log"

	"github.com/emostream-io/emostream/pkg/models"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	requestTimeout = 30 * time.Second
	maxRetries     = 2

	// historyLimit bounds the conversation turns sent per request.
	historyLimit = 10
)

// Config holds the chat-completion endpoint settings.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
}

// OpenAI generates therapist replies through an OpenAI-compatible
// chat-completions endpoint.
type OpenAI struct {
	client openaigo.Client
	model  string
}

// NewOpenAI builds the responder. An empty API key is an error; callers
// treat that as "run with fallback only".
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("responder config incomplete: api_key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	client := openaigo.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
		option.WithMaxRetries(maxRetries),
		option.WithRequestTimeout(requestTimeout),
	)

	return &OpenAI{client: client, model: model}, nil
}

// Respond assembles the persona, physiological context and recent
// conversation into a chat-completion request and returns the reply text.
func (o *OpenAI) Respond(ctx context.Context, persona []models.Segment, eegContext string, history []models.Segment, userText string) (string, error) {
	messages := buildMessages(persona, eegContext, history, userText)

	resp, err := o.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(o.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Debug().
		Str("model", o.model).
		Int("messages", len(messages)).
		Int("replyLen", len(text)).
		Msg("Generated therapist reply")
	return text, nil
}

// buildMessages maps conversation segments onto chat roles: persona text
// becomes the system message, the physiological context rides along as a
// second system message, and history alternates by speaker. The latest
// user text goes last.
func buildMessages(persona []models.Segment, eegContext string, history []models.Segment, userText string) []openaigo.ChatCompletionMessageParamUnion {
	messages := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(history)+4)

	var personaText strings.Builder
	for _, seg := range persona {
		if personaText.Len() > 0 {
			personaText.WriteString("\n")
		}
		personaText.WriteString(seg.Text)
	}
	if personaText.Len() > 0 {
		messages = append(messages, openaigo.SystemMessage(personaText.String()))
	}
	if eegContext != "" {
		messages = append(messages, openaigo.SystemMessage(eegContext))
	}

	start := 0
	if len(history) > historyLimit {
		start = len(history) - historyLimit
	}
	for _, seg := range history[start:] {
		switch seg.Speaker {
		case models.SpeakerTherapist:
			messages = append(messages, openaigo.AssistantMessage(seg.Text))
		case models.SpeakerContext:
			messages = append(messages, openaigo.SystemMessage(seg.Text))
		default:
			messages = append(messages, openaigo.UserMessage(seg.Text))
		}
	}

	if len(history) == 0 || history[len(history)-1].Text != userText {
		messages = append(messages, openaigo.UserMessage(userText))
	}
	return messages
}
