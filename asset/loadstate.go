package asset

import "sync"

// LoadState coordinates the background loading worker with the frame
// loop: StartLoad spawns one goroutine that loads the file, and the
// frame loop polls Busy each frame to suppress scene-dependent
// operations until TakeResult hands over the finished model. Only one
// load runs at a time; a request issued while busy is rejected so the
// in-flight load is never abandoned mid-decode.
type LoadState struct {
	mu      sync.Mutex
	busy    bool
	model   *Model
	err     error
	path    string
	pending bool
}

// Busy reports whether a load worker is still running.
func (ls *LoadState) Busy() bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.busy
}

// StartLoad begins loading path on a new goroutine. Returns false if a
// load is already in flight.
func (ls *LoadState) StartLoad(path string) bool {
	ls.mu.Lock()
	if ls.busy {
		ls.mu.Unlock()
		return false
	}
	ls.busy = true
	ls.path = path
	ls.pending = false
	ls.mu.Unlock()

	go func() {
		m, err := Load(path)
		ls.mu.Lock()
		ls.model, ls.err = m, err
		ls.busy = false
		ls.pending = true
		ls.mu.Unlock()
	}()
	return true
}

// TakeResult returns the finished load exactly once. ok is false while
// the worker is still running or when the result was already consumed;
// after a failed load it returns (nil, err, true) and the caller keeps
// its previous model.
func (ls *LoadState) TakeResult() (m *Model, err error, ok bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.busy || !ls.pending {
		return nil, nil, false
	}
	ls.pending = false
	m, err = ls.model, ls.err
	ls.model, ls.err = nil, nil
	return m, err, true
}

// Path returns the most recently requested file path.
func (ls *LoadState) Path() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.path
}
