package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// pollInterval is how often the feed refreshes while the owning view is
// focused.
const pollInterval = 20 * time.Second

// Fetcher produces one complete feed per sync cycle.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Message, error)
}

// Sender posts one reply as an issue comment.
type Sender interface {
	Send(ctx context.Context, issueKey, text string) error
}

// Engine keeps the feed fresh and tracks its presentation state: load and
// refresh flags, the latest error message, per-message reply drafts and the
// in-flight send marker. One Engine instance serves one session; when the
// session ends the engine is closed and completions of any still-running
// cycles are discarded.
//
// Each sync cycle is tagged with a monotonically increasing sequence number
// and a completion that arrives after a newer cycle has already been applied
// is dropped, so racing cycles cannot overwrite fresher data with staler
// data.
type Engine struct {
	fetcher  Fetcher
	sender   Sender
	interval time.Duration
	logger   *logrus.Entry

	mu           sync.Mutex
	started      bool
	closed       bool
	messages     []Message
	loading      bool
	refreshing   bool
	errorText    string
	lastUpdated  time.Time
	drafts       map[string]string
	sendingID    string
	nextCycle    uint64
	appliedCycle uint64
	pollCancel   context.CancelFunc
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPollInterval overrides the periodic refresh interval.
func WithPollInterval(interval time.Duration) Option {
	return func(e *Engine) {
		e.interval = interval
	}
}

// WithLogger sets the logger used for cycle diagnostics.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine in its initial state: no messages, no error,
// empty drafts, nothing in flight.
func NewEngine(fetcher Fetcher, sender Sender, opts ...Option) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		sender:    sender,
		interval:  pollInterval,
		logger:    logrus.NewEntry(logrus.StandardLogger()),
		drafts:    map[string]string{},
		nextCycle: 1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Snapshot is the engine state exposed to the presentation layer.
type Snapshot struct {
	Messages    []Message
	Loading     bool
	Refreshing  bool
	ErrorText   string
	LastUpdated time.Time
	SendingID   string
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	messages := make([]Message, len(e.messages))
	copy(messages, e.messages)

	return Snapshot{
		Messages:    messages,
		Loading:     e.loading,
		Refreshing:  e.refreshing,
		ErrorText:   e.errorText,
		LastUpdated: e.lastUpdated,
		SendingID:   e.sendingID,
	}
}

// Start runs the initial load. It fires at most once per engine, no matter
// how often the presentation layer re-invokes it.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	return e.runCycle(ctx, false)
}

// Refresh runs one refresh cycle. Used for explicit pull-to-refresh; the
// poll timer and successful sends trigger the same path.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.runCycle(ctx, true)
}

// runCycle performs one fetch-and-replace pass. The error state is cleared
// when the cycle starts and set when it fails. On failure the previous
// message list stays in place.
func (e *Engine) runCycle(ctx context.Context, refresh bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	seq := e.nextCycle
	e.nextCycle++
	e.errorText = ""
	if refresh {
		e.refreshing = true
	} else {
		e.loading = true
	}
	e.mu.Unlock()

	messages, err := e.fetcher.Fetch(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if refresh {
		e.refreshing = false
	} else {
		e.loading = false
	}

	if e.closed {
		return nil
	}
	if seq <= e.appliedCycle {
		// A newer cycle has already been applied; this completion is stale.
		return nil
	}
	e.appliedCycle = seq

	if err != nil {
		e.errorText = err.Error()
		e.logger.WithError(err).Warn("feed sync cycle failed")
		return err
	}

	e.messages = messages
	e.lastUpdated = time.Now()
	return nil
}

// Draft returns the reply draft for a message.
func (e *Engine) Draft(messageID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts[messageID]
}

// SetDraft records the reply draft for a message.
func (e *Engine) SetDraft(messageID, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.drafts[messageID] = text
}

// Send posts the draft of the given message as a comment on its issue. On
// success the draft is cleared and a refresh cycle runs; on failure the
// draft stays intact and the error state is set. The sending marker is
// cleared either way. An empty or whitespace-only draft is a no-op.
func (e *Engine) Send(ctx context.Context, messageID string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}

	var issueKey string
	for _, m := range e.messages {
		if m.ID == messageID {
			issueKey = m.IssueKey
			break
		}
	}
	if issueKey == "" {
		e.mu.Unlock()
		return fmt.Errorf("unknown message %q", messageID)
	}

	text := strings.TrimSpace(e.drafts[messageID])
	if text == "" {
		e.mu.Unlock()
		return nil
	}
	e.sendingID = messageID
	e.mu.Unlock()

	err := e.sender.Send(ctx, issueKey, text)

	e.mu.Lock()
	e.sendingID = ""
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.errorText = err.Error()
		e.logger.WithError(err).Warn("sending comment failed")
		e.mu.Unlock()
		return err
	}
	delete(e.drafts, messageID)
	e.mu.Unlock()

	return e.Refresh(ctx)
}

// Focus acquires the periodic poll. Focusing an already focused engine is a
// no-op; refocusing after Blur restarts the interval from zero.
func (e *Engine) Focus() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.pollCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.pollCancel = cancel
	go e.poll(ctx)
}

// Blur releases the periodic poll.
func (e *Engine) Blur() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releasePollLocked()
}

// Close tears the engine down: the poll is released and any still-running
// cycle or send completes into the void.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releasePollLocked()
	e.closed = true
}

func (e *Engine) releasePollLocked() {
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}
}

// poll fires a refresh on every tick unless a cycle is already in flight, in
// which case the tick is skipped rather than queued.
func (e *Engine) poll(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			busy := e.loading || e.refreshing
			e.mu.Unlock()
			if busy {
				continue
			}

			// Failures land in the engine's error state.
			_ = e.runCycle(ctx, true)
		}
	}
}
