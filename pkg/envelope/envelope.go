// Package envelope builds the uniform response object every endpoint
// returns, on success and on failure.
package envelope

import (
	"time"

	"github.com/papercomputeco/murasame/pkg/conversation"
	"github.com/papercomputeco/murasame/pkg/provider"
)

// TimeLayout is the local wall-clock format of Envelope.Time.
const TimeLayout = "2006-01-02 15:04:05"

// Envelope status values. The HTTP status of an envelope response is always
// 200; Status carries the outcome.
const (
	StatusOK    = 200
	StatusError = 500
)

// Envelope is the response body of the conversational endpoints.
type Envelope struct {
	Response string               `json:"response"`
	History  conversation.History `json:"history"`
	Status   int                  `json:"status"`
	Time     string               `json:"time"`
}

// OK reports whether the envelope carries a reply.
func (e Envelope) OK() bool {
	return e.Status == StatusOK
}

// Builder stamps envelopes with a clock. The zero value uses time.Now.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a Builder reading time from now; nil means time.Now.
func NewBuilder(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Success returns an envelope whose history is history plus the assistant
// reply. history is not modified.
func (b *Builder) Success(history conversation.History, reply provider.Reply) Envelope {
	return Envelope{
		Response: reply.Text,
		History:  conversation.Append(history, conversation.AssistantTurn(reply.Text)),
		Status:   StatusOK,
		Time:     b.stamp(),
	}
}

// Failure returns an envelope describing err. The history is returned as
// given, without an assistant turn, so the client can retry it.
func (b *Builder) Failure(history conversation.History, err error) Envelope {
	return Envelope{
		Response: Describe(err),
		History:  history.Clone(),
		Status:   StatusError,
		Time:     b.stamp(),
	}
}

// Build returns Success when err is nil and Failure otherwise.
func (b *Builder) Build(history conversation.History, reply provider.Reply, err error) Envelope {
	if err != nil {
		return b.Failure(history, err)
	}
	return b.Success(history, reply)
}

func (b *Builder) stamp() string {
	now := time.Now
	if b != nil && b.now != nil {
		now = b.now
	}
	return now().Local().Format(TimeLayout)
}

// Describe renders err as the human-readable failure text of an envelope.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return "error: " + err.Error()
}
