// Package aichat answers channel mentions through an OpenAI-compatible
// completion API. Each guild shares one conversation kept as a rolling
// window in storage, so the model sees recent context without the history
// growing without bound.
package aichat

import (
	"context"
	"fmt"
	"github.com/sashabaranov/go-openai"
	"guildsync/entity"
	"guildsync/internal/config"
	"guildsync/lib/sl"
	"log/slog"
	"strings"
	"time"
)

type History interface {
	Conversation(contextKey string) (*entity.Conversation, error)
	SaveConversation(conversation *entity.Conversation) error
	DeleteConversation(contextKey string) error
}

type Chat struct {
	client   *openai.Client
	history  History
	model    string
	persona  string
	maxTurns int
	log      *slog.Logger
}

// New builds a chat client for the configured completion endpoint. Works
// against any OpenAI-compatible API; the base URL decides the provider.
// History may be nil, in which case every exchange starts from scratch.
func New(conf config.AIConfig, history History, logger *slog.Logger) *Chat {
	clientConfig := openai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		clientConfig.BaseURL = conf.BaseURL
	}
	return &Chat{
		client:   openai.NewClientWithConfig(clientConfig),
		history:  history,
		model:    conf.Model,
		persona:  conf.Persona,
		maxTurns: conf.MaxTurns,
		log:      logger.With(sl.Module("aichat")),
	}
}

// Reply sends the author's message to the model together with the guild's
// recent history and returns the model's answer. The author name is folded
// into the user turn so the model can tell speakers apart in a shared
// conversation.
func (c *Chat) Reply(ctx context.Context, guildID, author, message string) (string, error) {
	turns := c.load(guildID)
	turns = append(turns, entity.ChatTurn{
		Role:    entity.ChatRoleUser,
		Content: fmt.Sprintf("%s: %s", author, message),
	})

	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.persona,
	})
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	t1 := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.Debug("chat completion",
		slog.String("model", c.model),
		slog.Int("turns", len(turns)),
		slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))))

	turns = append(turns, entity.ChatTurn{Role: entity.ChatRoleAssistant, Content: answer})
	c.save(guildID, turns)
	return answer, nil
}

// Reset drops the stored conversation for a guild.
func (c *Chat) Reset(guildID string) error {
	if c.history == nil {
		return nil
	}
	return c.history.DeleteConversation(guildID)
}

func (c *Chat) load(key string) []entity.ChatTurn {
	if c.history == nil {
		return nil
	}
	conversation, err := c.history.Conversation(key)
	if err != nil {
		c.log.Warn("failed to load conversation", slog.String("context", key), sl.Err(err))
		return nil
	}
	if conversation == nil {
		return nil
	}
	return conversation.Turns
}

func (c *Chat) save(key string, turns []entity.ChatTurn) {
	if c.history == nil {
		return
	}
	if len(turns) > c.maxTurns && c.maxTurns > 0 {
		turns = turns[len(turns)-c.maxTurns:]
	}
	err := c.history.SaveConversation(&entity.Conversation{ContextKey: key, Turns: turns})
	if err != nil {
		c.log.Warn("failed to save conversation", slog.String("context", key), sl.Err(err))
	}
}
