package domain

import "time"

// Role identifies who authored a chat turn.
type Role string

// Chat roles.
const (
	// RoleHuman is a question typed by the user.
	RoleHuman Role = "human"

	// RoleAI is a generated answer.
	RoleAI Role = "ai"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleHuman || r == RoleAI
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// ChatTurn is one message in a document's conversation log.
// Turns are append-only and ordered by CreatedAt ascending.
type ChatTurn struct {
	// ID is the unique identifier for the turn.
	ID string `json:"id"`

	// OwnerID is the user the conversation belongs to.
	OwnerID string `json:"owner_id"`

	// DocumentID is the document the conversation is about.
	DocumentID string `json:"document_id"`

	// Role is human or ai.
	Role Role `json:"role"`

	// Text is the message body.
	Text string `json:"text"`

	// CreatedAt orders turns within a conversation.
	CreatedAt time.Time `json:"created_at"`
}

// Exchange is one answered question.
type Exchange struct {
	Question ChatTurn
	Answer   ChatTurn

	// Query is the standalone search query the question was rephrased into.
	Query string

	// Passages are the retrieved context, most similar first.
	Passages []ScoredPassage
}

// AskResult is the presentation-facing outcome of asking a question.
// A failed ask never carries an answer; ErrorText is meant for display
// as an error, distinct from model output.
type AskResult struct {
	Success   bool   `json:"success"`
	ErrorText string `json:"error,omitempty"`
	Answer    string `json:"answer,omitempty"`
}
