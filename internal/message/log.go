package message

import "sync"

// Log is the append-only transcript of one session. Appends are serialized;
// readers work from snapshots.
type Log struct {
	mu      sync.RWMutex
	entries []Message
	notify  func()
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithNotify registers fn to be called after every append. fn runs outside
// the log's lock.
func WithNotify(fn func()) LogOption {
	return func(l *Log) { l.notify = fn }
}

// NewLog returns a log seeded with a copy of entries.
func NewLog(entries []Message, opts ...LogOption) *Log {
	l := &Log{entries: append([]Message(nil), entries...)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append places m at the end of the log. Nil messages are ignored.
func (l *Log) Append(m Message) {
	if m == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, m)
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Snapshot returns a copy of the current entries.
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// At returns the entry at index i.
func (l *Log) At(i int) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.entries) {
		return nil, false
	}
	return l.entries[i], true
}

// LastAnswer returns the content of the newest plain AI answer in msgs, or
// "". Structured replies (exams, papers, trends) are not read aloud.
func LastAnswer(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if a, ok := msgs[i].(AIText); ok {
			return a.Content
		}
	}
	return ""
}
