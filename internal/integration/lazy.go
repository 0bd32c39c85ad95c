package integration

import "sync"

// Lazy memoizes a value built on first successful use. It is safe for
// concurrent use; a failed initialization is not cached, so the next Get
// retries.
type Lazy[T any] struct {
	mu    sync.RWMutex
	value T
	set   bool
}

// Get returns the cached value, calling initFn to build it when unset.
func (l *Lazy[T]) Get(initFn func() (T, error)) (T, error) {
	l.mu.RLock()
	if l.set {
		v := l.value
		l.mu.RUnlock()
		return v, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.set {
		return l.value, nil
	}

	v, err := initFn()
	if err != nil {
		var zero T
		return zero, err
	}

	l.value = v
	l.set = true
	return v, nil
}

// Set stores v as the memoized value, replacing any previous one.
func (l *Lazy[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.set = true
}

// IsSet reports whether a value has been memoized.
func (l *Lazy[T]) IsSet() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.set
}
