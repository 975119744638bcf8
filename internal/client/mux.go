package client

import (
	"strings"
	"sync"

	"teamchat/pkg/types"
)

// Scope prefixes and the global scope name.
const (
	ScopeGlobal        = "global"
	scopeChannelPrefix = "channel-"
	scopeThreadPrefix  = "thread-"
)

// ChannelScope returns the persistent scope for a channel.
func ChannelScope(channelID string) string {
	return scopeChannelPrefix + channelID
}

// ThreadScope returns the temporary scope for a thread.
func ThreadScope(parentID string) string {
	return scopeThreadPrefix + parentID
}

// HandlerFunc receives envelopes matching a registered scope.
type HandlerFunc func(env *types.Envelope)

type registration struct {
	id         uint64
	scope      string
	fn         HandlerFunc
	persistent bool
}

// Multiplexer fans inbound envelopes out to view handlers by scope.
// Channel scopes are persistent: they survive view teardown (presence and
// typing for a channel must keep working across view switches) and a new
// registration for the same channel scope replaces the old one. Thread
// scopes are temporary: the returned cleanup removes them when the thread
// view closes. Cleanup never touches the shared transport.
type Multiplexer struct {
	mu     sync.Mutex
	regs   []*registration
	nextID uint64
}

// NewMultiplexer creates an empty multiplexer.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{}
}

// AddHandler registers fn for a scope and returns its cleanup function.
// For persistent channel scopes the cleanup is a no-op and any existing
// registration for the same scope is replaced, never stacked.
func (m *Multiplexer) AddHandler(fn HandlerFunc, scope string) func() {
	persistent := strings.HasPrefix(scope, scopeChannelPrefix)

	m.mu.Lock()
	if persistent {
		// Exactly one active handler per channel scope at a time.
		kept := m.regs[:0]
		for _, reg := range m.regs {
			if reg.scope != scope {
				kept = append(kept, reg)
			}
		}
		m.regs = kept
	}

	m.nextID++
	id := m.nextID
	m.regs = append(m.regs, &registration{
		id:         id,
		scope:      scope,
		fn:         fn,
		persistent: persistent,
	})
	m.mu.Unlock()

	if persistent {
		return func() {}
	}
	return func() { m.remove(id) }
}

// Dispatch routes an envelope to every handler whose scope matches it.
// It iterates a snapshot of the handler list, so handlers registered or
// removed during a dispatch pass never mutate the list being walked.
func (m *Multiplexer) Dispatch(env *types.Envelope) {
	m.mu.Lock()
	snapshot := make([]*registration, len(m.regs))
	copy(snapshot, m.regs)
	m.mu.Unlock()

	for _, reg := range snapshot {
		if scopeMatches(env, reg.scope) {
			reg.fn(env)
		}
	}
}

// HandlerCount reports registered handlers, for tests and diagnostics.
func (m *Multiplexer) HandlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs)
}

func (m *Multiplexer) remove(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.regs[:0]
	for _, reg := range m.regs {
		if reg.id != id {
			kept = append(kept, reg)
		}
	}
	m.regs = kept
}

// scopeMatches pairs envelope kinds with scope prefixes: channel posts
// and typing reach the matching channel scope, thread posts reach the
// matching thread scope, presence and errors reach the global scope. A
// thread view and a channel view never receive each other's events even
// though both listen on the same transport.
func scopeMatches(env *types.Envelope, scope string) bool {
	switch env.Type {
	case types.KindMessage, types.KindTyping:
		return scope == scopeChannelPrefix+env.ChannelID
	case types.KindThreadMessage:
		return scope == scopeThreadPrefix+env.ParentID
	case types.KindUserStatus, types.KindError:
		return scope == ScopeGlobal
	default:
		return false
	}
}
