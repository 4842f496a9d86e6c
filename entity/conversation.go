package entity

import "time"

// Chat roles as stored in conversation history.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatTurn is one stored message of an AI conversation context.
type ChatTurn struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// Conversation is the rolling AI chat history for one context key
// (guild-scoped, so a community shares one thread with the persona).
type Conversation struct {
	ContextKey  string     `json:"context_key" bson:"context_key"`
	Turns       []ChatTurn `json:"turns" bson:"turns"`
	LastUpdated time.Time  `json:"last_updated" bson:"last_updated"`
}
