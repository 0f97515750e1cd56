package consult

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MindEase/internal/model"
	"MindEase/internal/store"

	"go.uber.org/zap"
)

// DefaultTypingExpiry is the debounce window before a stopped typist's
// flag clears.
const DefaultTypingExpiry = 2500 * time.Millisecond

const presenceWriteTimeout = 5 * time.Second

// PresenceCoordinator publishes the local role's typing flag with a
// debounced expiry and consumes the remote role's flag.
//
// The local side has two states, idle and announcing. The first input
// change writes true and arms the expiry timer; further input re-arms
// the timer without writing again. Only the timer firing writes false;
// sending a message does not clear the flag.
//
// The remote flag is exposed exactly as read. There is no reader-side
// max-age fallback: a remote writer that dies mid-typing leaves its
// flag stuck true.
type PresenceCoordinator struct {
	st     store.Store
	role   model.Role
	expiry time.Duration
	log    *zap.Logger

	mu         sync.Mutex
	generation uint64
	sessionKey string
	announcing bool
	timer      *time.Timer
	remote     bool
}

func NewPresenceCoordinator(st store.Store, role model.Role, expiry time.Duration, log *zap.Logger) *PresenceCoordinator {
	if expiry <= 0 {
		expiry = DefaultTypingExpiry
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PresenceCoordinator{st: st, role: role, expiry: expiry, log: log}
}

// Attach binds the coordinator to a session and returns the generation
// tag for remote-snapshot callbacks.
func (p *PresenceCoordinator) Attach(sessionKey string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.sessionKey = sessionKey
	p.remote = false
	p.announcing = false
	p.stopTimerLocked()
	return p.generation
}

// Detach cancels the pending expiry timer and invalidates the
// generation. The previous session's flag is not force-cleared; its
// expiry write was tied to the old key and is cancelled with it.
func (p *PresenceCoordinator) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.sessionKey = ""
	p.remote = false
	p.announcing = false
	p.stopTimerLocked()
}

// InputChanged reports a local text-input change. Idle -> announcing
// writes the flag; announcing -> announcing only re-arms the expiry
// timer, so rapid typing produces exactly one true write.
func (p *PresenceCoordinator) InputChanged(ctx context.Context) error {
	p.mu.Lock()
	if p.sessionKey == "" {
		p.mu.Unlock()
		return ErrNoSession
	}
	key := p.sessionKey
	generation := p.generation
	first := !p.announcing
	p.announcing = true
	p.stopTimerLocked()
	p.timer = time.AfterFunc(p.expiry, func() { p.expire(generation) })
	p.mu.Unlock()

	if !first {
		return nil
	}

	if err := p.write(ctx, key, true); err != nil {
		p.mu.Lock()
		if p.generation == generation {
			p.announcing = false
			p.stopTimerLocked()
		}
		p.mu.Unlock()
		return fmt.Errorf("announce typing: %w", err)
	}
	return nil
}

// expire is the only path that clears the local flag.
func (p *PresenceCoordinator) expire(generation uint64) {
	p.mu.Lock()
	if p.generation != generation || !p.announcing {
		p.mu.Unlock()
		return
	}
	p.announcing = false
	key := p.sessionKey
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), presenceWriteTimeout)
	defer cancel()
	if err := p.write(ctx, key, false); err != nil {
		p.log.Warn("typing expiry write failed",
			zap.String("session", key),
			zap.Error(err),
		)
	}
}

// write merge-writes only this role's field, leaving the other role's
// flag untouched.
func (p *PresenceCoordinator) write(ctx context.Context, key string, typing bool) error {
	return p.st.Put(ctx, typingPath(key), map[string]any{p.role.TypingField(): typing}, true)
}

// ApplyRemote consumes a snapshot of the shared typing record. Returns
// the remote flag and true when applied, false for a stale generation.
func (p *PresenceCoordinator) ApplyRemote(generation uint64, snap store.Snapshot) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		return false, false
	}
	p.remote = typingFromSnapshot(snap).FlagFor(p.role.Opposite())
	return p.remote, true
}

// Current reports whether the tag still names the active generation.
func (p *PresenceCoordinator) Current(generation uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return generation == p.generation
}

// RemoteTyping returns the other role's flag as last read.
func (p *PresenceCoordinator) RemoteTyping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *PresenceCoordinator) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
