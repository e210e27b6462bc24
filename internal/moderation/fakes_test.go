package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errTransport = errors.New("transport failure")

type call struct {
	Method string
	ChatID int64
	ID     int64
	Text   string
	Revoke bool
}

// fakeTransport records every call and keeps the set of messages it considers
// visible in each chat.
type fakeTransport struct {
	mu       sync.Mutex
	calls    []call
	nextID   int
	statuses map[int64]MemberStatus
	visible  map[string]string

	failDelete bool
	failSend   bool
	failBan    bool
	failStatus bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		nextID:   1000,
		statuses: make(map[int64]MemberStatus),
		visible:  make(map[string]string),
	}
}

func visibleKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d/%d", chatID, messageID)
}

func (f *fakeTransport) post(msg Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[visibleKey(msg.ChatID, msg.ID)] = msg.Text
}

func (f *fakeTransport) isVisible(chatID int64, messageID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visible[visibleKey(chatID, messageID)]
	return ok
}

func (f *fakeTransport) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "delete", ChatID: chatID, ID: int64(messageID)})
	if f.failDelete {
		return errTransport
	}
	delete(f.visible, visibleKey(chatID, messageID))
	return nil
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "send", ChatID: chatID, Text: text})
	if f.failSend {
		return 0, errTransport
	}
	f.nextID++
	f.visible[visibleKey(chatID, f.nextID)] = text
	return f.nextID, nil
}

func (f *fakeTransport) MemberStatus(_ context.Context, chatID, userID int64) (MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "status", ChatID: chatID, ID: userID})
	if f.failStatus {
		return MemberStatusUnknown, errTransport
	}
	if s, ok := f.statuses[userID]; ok {
		return s, nil
	}
	return MemberStatusMember, nil
}

func (f *fakeTransport) BanMember(_ context.Context, chatID, userID int64, revoke bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "ban", ChatID: chatID, ID: userID, Revoke: revoke})
	if f.failBan {
		return errTransport
	}
	return nil
}

func (f *fakeTransport) UnbanMember(_ context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "unban", ChatID: chatID, ID: userID})
	return nil
}

func (f *fakeTransport) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeTransport) callsOf(method string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// fakeDeferrer keeps scheduled functions until fire is called.
type fakeDeferrer struct {
	mu      sync.Mutex
	pending []deferred
	fail    bool
}

type deferred struct {
	delay time.Duration
	name  string
	fn    func(ctx context.Context)
}

func (d *fakeDeferrer) After(delay time.Duration, name string, fn func(ctx context.Context)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("scheduler stopped")
	}
	d.pending = append(d.pending, deferred{delay: delay, name: name, fn: fn})
	return nil
}

func (d *fakeDeferrer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// fire runs and clears all pending functions, as if their delay elapsed.
func (d *fakeDeferrer) fire() {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()
	for _, p := range pending {
		p.fn(context.Background())
	}
}

type fakeJournal struct {
	mu          sync.Mutex
	moderations []ModerationRecord
	changes     []PhraseChange
	fail        bool
}

func (j *fakeJournal) RecordModeration(_ context.Context, rec ModerationRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("journal unavailable")
	}
	j.moderations = append(j.moderations, rec)
	return nil
}

func (j *fakeJournal) RecordPhraseChange(_ context.Context, change PhraseChange) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("journal unavailable")
	}
	j.changes = append(j.changes, change)
	return nil
}

const (
	testChatID   int64 = -100123
	testBotName        = "PhraseGuardBot"
	adminID      int64 = 1
	memberID     int64 = 2
	testTTL            = 30 * time.Second
	addressedFmt       = "/%s@" + testBotName + " %s"
)

type harness struct {
	transport *fakeTransport
	deferrer  *fakeDeferrer
	journal   *fakeJournal
	store     *PhraseStore
	processor *Processor
	executor  *Executor
	router    *Router
}

func newHarness(initial ...string) *harness {
	h := &harness{
		transport: newFakeTransport(),
		deferrer:  &fakeDeferrer{},
		journal:   &fakeJournal{},
		store:     NewPhraseStore(initial),
	}
	h.transport.statuses[adminID] = MemberStatusAdministrator
	h.transport.statuses[memberID] = MemberStatusMember

	replier := NewReplier(h.transport, h.deferrer, testTTL, nil)
	h.processor = NewProcessor(ProcessorDeps{
		Store:       h.store,
		Members:     h.transport,
		Replier:     replier,
		Journal:     h.journal,
		Messages:    DefaultMessages(),
		BotUsername: testBotName,
	})
	h.executor = NewExecutor(h.transport, SanctionBan, h.journal, nil, nil)
	h.router = NewRouter(h.store, h.processor, h.executor, nil, nil)
	return h
}

func textMessage(id int, userID int64, text string) Message {
	msg := Message{ID: id, ChatID: testChatID, Text: text, HasText: true}
	if userID != 0 {
		msg.Author = &Author{ID: userID, Username: fmt.Sprintf("user%d", userID)}
	}
	return msg
}
