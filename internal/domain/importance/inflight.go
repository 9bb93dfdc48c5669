package importance

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// DefaultInflightTimeout bounds a shared computation once it is detached from
// the callers that started it.
const DefaultInflightTimeout = 30 * time.Second

// flight is one shared computation. It runs on its own context and is
// abandoned only when every caller waiting on it has gone.
type flight struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters map[*context.Context]struct{}
}

type flights struct {
	mu      sync.Mutex
	gen     uint64
	timeout time.Duration
	active  map[string]*flight
}

// join registers ctx as a waiter on the flight for key, starting a new one
// when none is active.
func (fs *flights) join(ctx context.Context, key string) (*flight, *context.Context) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.active == nil {
		fs.active = map[string]*flight{}
	}
	f, ok := fs.active[key]
	if !ok {
		fs.gen++
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fs.timeout)
		f = &flight{
			key:     key + "\x00" + strconv.FormatUint(fs.gen, 10),
			ctx:     fctx,
			cancel:  cancel,
			waiters: map[*context.Context]struct{}{},
		}
		fs.active[key] = f
	}
	w := &ctx
	f.waiters[w] = struct{}{}
	return f, w
}

// leave drops a waiter; the last one out cancels the flight.
func (fs *flights) leave(key string, f *flight, w *context.Context) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(f.waiters, w)
	if len(f.waiters) > 0 {
		return
	}
	f.cancel()
	if fs.active[key] == f {
		delete(fs.active, key)
	}
}

// abandoned reports why f should not persist its result: every waiter has
// cancelled, or the flight itself timed out.
func (fs *flights) abandoned(f *flight) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := f.ctx.Err(); err != nil {
		return err
	}
	var last error
	for w := range f.waiters {
		err := (*w).Err()
		if err == nil {
			return nil
		}
		last = err
	}
	if last == nil {
		return context.Canceled
	}
	return last
}
