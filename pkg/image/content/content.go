// Package content models a Layer's raw bytes as a tagged variant — either
// bytes already in hand, or a thunk that fetches them on first access — so
// call sites never branch on "is this lazy" and thunks are forced at most
// once.
package content

import "sync"

// Source is the accessor every Layer content field goes through. Bytes
// forces the underlying thunk on first call and memoizes the result; every
// subsequent call returns the cached bytes without re-running the thunk.
type Source interface {
	// Bytes returns the content, fetching it if this is a deferred source.
	Bytes() ([]byte, error)

	// Resolved reports whether Bytes has already been forced. Used by
	// tests and by the lazy-push path to decide whether reading would
	// trigger network/disk I/O.
	Resolved() bool
}

// FromBytes wraps already-available bytes in a Source. Bytes() never
// errors and Resolved() is always true.
func FromBytes(b []byte) Source {
	return &eager{b: b}
}

type eager struct{ b []byte }

func (e *eager) Bytes() ([]byte, error) { return e.b, nil }
func (e *eager) Resolved() bool         { return true }

// Thunk is a deferred fetch: registry blob download, disk read, etc.
type Thunk func() ([]byte, error)

// FromThunk wraps a deferred fetch in a Source. The thunk runs at most
// once, on the first call to Bytes(); concurrent callers coalesce onto the
// single in-flight fetch.
func FromThunk(fn Thunk) Source {
	return &lazy{fn: fn}
}

type lazy struct {
	fn       Thunk
	once     sync.Once
	mu       sync.Mutex
	b        []byte
	err      error
	resolved bool
}

func (l *lazy) Bytes() ([]byte, error) {
	l.once.Do(func() {
		l.b, l.err = l.fn()
		l.mu.Lock()
		l.resolved = true
		l.mu.Unlock()
	})
	return l.b, l.err
}

func (l *lazy) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved
}
