// Copyright 2025 The graingc Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graingc

import (
	"sync"

	"github.com/google/uuid"
)

// MessageType identifies the kind of record a client polls from the
// message queue.
type MessageType int

const (
	// MessageGCStart reports that a collection cycle has begun.
	MessageGCStart MessageType = iota
	// MessageGC reports that a collection cycle has finished, carrying
	// its size statistics.
	MessageGC
	// MessageFinalization reports that a finalizable object has become
	// unreachable.
	MessageFinalization
)

// Message is one record in the arena's message queue. Only the fields
// relevant to Type are meaningful.
type Message struct {
	Type MessageType

	// ID correlates a gcStart/gc message pair across the queue and the
	// structured trace-lifecycle log, since both can be emitted well
	// before a client ever polls MessageGet.
	ID uuid.UUID

	// MessageGCStart fields.
	Reason string

	// MessageGC fields.
	Live, Condemned, NotCondemned int

	// MessageFinalization fields.
	Finalized Addr

	Clock int64
}

type gcStartMessage struct {
	id     uuid.UUID
	reason string
}
type gcMessage struct {
	id                               uuid.UUID
	live, condemned, notCondemned int
}
type finalizationMessage struct{ obj Addr }

// messageQueue is a simple FIFO the client polls via Arena.MessageGet /
// Arena.MessageDiscard; there is no persisted state, matching spec.md §6
// ("Persisted state: none").
type messageQueue struct {
	mu    sync.Mutex
	clock int64
	items []Message
}

func newMessageQueue() *messageQueue { return &messageQueue{} }

func (q *messageQueue) push(m any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clock++
	switch v := m.(type) {
	case gcStartMessage:
		q.items = append(q.items, Message{Type: MessageGCStart, ID: v.id, Reason: v.reason, Clock: q.clock})
	case gcMessage:
		q.items = append(q.items, Message{
			Type: MessageGC, ID: v.id, Live: v.live, Condemned: v.condemned,
			NotCondemned: v.notCondemned, Clock: q.clock,
		})
	case finalizationMessage:
		q.items = append(q.items, Message{Type: MessageFinalization, Finalized: v.obj, Clock: q.clock})
	}
}

// MessageQueueType reports whether a message of typ is currently queued.
func (a *Arena) MessageQueueType(typ MessageType) bool {
	a.messages.mu.Lock()
	defer a.messages.mu.Unlock()
	for _, m := range a.messages.items {
		if m.Type == typ {
			return true
		}
	}
	return false
}

// MessageGet returns and removes the oldest queued message, if any.
func (a *Arena) MessageGet() (Message, bool) {
	a.messages.mu.Lock()
	defer a.messages.mu.Unlock()
	if len(a.messages.items) == 0 {
		return Message{}, false
	}
	m := a.messages.items[0]
	a.messages.items = a.messages.items[1:]
	return m, true
}

// MessageDiscard drops the oldest queued message without returning it, a
// no-op if the queue is empty.
func (a *Arena) MessageDiscard() {
	a.messages.mu.Lock()
	defer a.messages.mu.Unlock()
	if len(a.messages.items) > 0 {
		a.messages.items = a.messages.items[1:]
	}
}
