// Package mock is an offline adapter returning canned supportive replies, used
// for demos and local development without provider credentials.
package mock

import (
	"context"
	"hash/fnv"

	"github.com/linnemanlabs/ethicamind/internal/provider"
)

// Name is the registry key for this adapter.
const Name = "mock"

// Replies is the default demo reply set.
var Replies = []string{
	"Thank you for sharing that with me. It sounds like a lot to carry. What feels heaviest right now?",
	"That makes sense. Sometimes a few slow, deep breaths can create a little space. Would you like to try one together?",
	"I hear you. Taking a short walk or stepping outside for a moment can help reset a busy mind.",
	"It's okay to feel this way. Is there someone you trust you could talk to about it today?",
}

// Client implements provider.Provider without network I/O. The same message
// always maps to the same reply.
type Client struct {
	replies []string
}

// New creates a mock adapter. Empty replies uses Replies.
func New(replies ...string) *Client {
	if len(replies) == 0 {
		replies = Replies
	}
	return &Client{replies: append([]string(nil), replies...)}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return Name }

// Attempt returns a reply selected by hashing message.
func (c *Client) Attempt(ctx context.Context, message string) provider.Result {
	if err := ctx.Err(); err != nil {
		return provider.Failure(err)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	return provider.Success(c.replies[h.Sum32()%uint32(len(c.replies))])
}
