package testutil

import (
	"sync"

	"github.com/roach88/chainexec/internal/sink"
)

// Message is one piece of command feedback.
type Message struct {
	Text    string `json:"text" yaml:"text"`
	Failure bool   `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Output records every message sent to a command source. It implements
// engine.Output.
type Output struct {
	mu       sync.Mutex
	messages []Message
}

func (o *Output) SendMessage(text string, failure bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, Message{Text: text, Failure: failure})
}

// Messages returns a copy of everything received so far.
func (o *Output) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}

// Failures returns the texts of failure messages.
func (o *Output) Failures() []string { return o.texts(true) }

// Successes returns the texts of feedback that is not a failure.
func (o *Output) Successes() []string { return o.texts(false) }

func (o *Output) texts(failure bool) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, m := range o.messages {
		if m.Failure == failure {
			out = append(out, m.Text)
		}
	}
	return out
}

// Reset forgets recorded messages.
func (o *Output) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = nil
}

// Journal records sink writes. It implements sink.Journal.
type Journal struct {
	mu     sync.Mutex
	writes []sink.Write
}

func (j *Journal) RecordWrite(w sink.Write) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.writes = append(j.writes, w)
}

// Writes returns a copy of the recorded writes in order.
func (j *Journal) Writes() []sink.Write {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]sink.Write(nil), j.writes...)
}
