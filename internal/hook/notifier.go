package hook

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/facecam/internal/attendance"
	"github.com/ayusman/facecam/internal/log"
	"github.com/ayusman/facecam/internal/recognize"
)

// Notifier fires attendance hooks once per known name.
type Notifier struct {
	manager  *Manager
	executor *Executor
	ctx      context.Context
	seen     map[string]bool
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewNotifier returns a notifier whose hook runs are bounded by ctx.
func NewNotifier(ctx context.Context, manager *Manager, executor *Executor) *Notifier {
	return &Notifier{
		manager:  manager,
		executor: executor,
		ctx:      ctx,
		seen:     make(map[string]bool),
	}
}

// Attach subscribes the notifier to a ledger.
func (n *Notifier) Attach(l *attendance.Ledger) {
	l.OnMark(n.Notify)
}

// Notify runs the subscribed hooks in the background if rec is the first
// record for a known name. Unknown faces never fire hooks.
func (n *Notifier) Notify(rec attendance.Record) {
	if rec.Name == recognize.Unknown {
		return
	}

	n.mu.Lock()
	if n.seen[rec.Name] {
		n.mu.Unlock()
		return
	}
	n.seen[rec.Name] = true
	n.mu.Unlock()

	hooks := n.manager.Subscribed(EventAttendance)
	if len(hooks) == 0 {
		return
	}

	ev := Event{
		ID:    uuid.NewString(),
		Event: EventAttendance,
		Name:  rec.Name,
		Date:  rec.Date,
		Time:  rec.Time,
	}

	for _, h := range hooks {
		n.wg.Add(1)
		go func(h *Hook) {
			defer n.wg.Done()

			resp, err := n.executor.Execute(n.ctx, h, ev)
			switch {
			case err != nil:
				log.Error("Hook failed", "hook", h.Manifest.Name, "name", ev.Name, "error", err)
			case !resp.Success:
				log.Warn("Hook reported failure", "hook", h.Manifest.Name, "name", ev.Name, "error", resp.Error)
			default:
				log.Debug("Hook ran", "hook", h.Manifest.Name, "name", ev.Name, "event_id", ev.ID)
			}
		}(h)
	}
}

// Wait blocks until every started hook has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
