// Package cleanup collects shutdown hooks registered while a command runs:
// the cache and history database handles, the Gemini client, and the JSONL
// log file. Hooks run once, in LIFO order, after command execution.
package cleanup

import (
	"errors"
	"sync"
)

var (
	mu    sync.Mutex
	hooks []func() error
)

// Register adds a hook. Nil hooks are ignored.
func Register(hook func() error) {
	if hook == nil {
		return
	}
	mu.Lock()
	hooks = append(hooks, hook)
	mu.Unlock()
}

// RunAll executes and drains all registered hooks in reverse registration
// order. Every hook runs even when earlier ones fail; their errors are
// joined.
func RunAll() error {
	mu.Lock()
	local := hooks
	hooks = nil
	mu.Unlock()

	var errs []error
	for i := len(local) - 1; i >= 0; i-- {
		if err := local[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
