// Package subscription implements the transport's subscription registry:
// three kind-indexed ordered trees mapping port to Subscription, each of
// which keeps its own ordered tree of per-origin reassembly Sessions.
package subscription

import (
	"log/slog"

	"github.com/opencyphal-go/serard/internal/header"
	"github.com/opencyphal-go/serard/pkg/avl"
)

// Allocator is the capability the registry needs to release session
// storage. It is structurally identical to (and satisfied by any
// implementation of) the top-level serard.Allocator; defined locally to
// avoid an import cycle with the root package.
type Allocator interface {
	Allocate(size int) []byte
	Free(buf []byte)
}

// Session is the per-(subscription, remote node) reassembly state used
// for transfer-ID deduplication and stale-session reclamation. Since this
// transport handles single-frame transfers only, a session carries no
// persistent partial-payload buffer across calls -- each transfer is
// complete in the frame that delivers it.
type Session struct {
	LastTransferID   uint64
	LastActivityUsec uint64
}

// Subscription is an application-registered interest in transfers of Kind
// on Port. Extent bounds the payload bytes delivered to the application;
// longer payloads are truncated (but still CRC-verified against their
// full length on the wire). TimeoutUsec is the inactivity interval after
// which a session's stored transfer ID stops being authoritative.
type Subscription struct {
	Kind          header.Kind
	Port          uint16
	Extent        int
	TimeoutUsec   uint64
	UserReference any

	sessions *avl.Tree[uint16, *Session]
}

func compareNodeID(a, b uint16) int { return int(a) - int(b) }

// FindSession returns the session for remoteNode, creating one lazily if
// none exists yet. created reports whether a new session was made.
func (s *Subscription) FindSession(remoteNode uint16) (session *Session, created bool) {
	n, created := s.sessions.FindOrInsert(remoteNode, func() *Session { return &Session{} })
	return n.Value, created
}

// Registry holds the three kind-indexed subscription trees. Its zero
// value is ready to use, logging through slog.Default() until SetLogger
// is called.
type Registry struct {
	trees [header.NumKinds]*avl.Tree[uint16, *Subscription]
	log   *slog.Logger
}

// SetLogger replaces the registry's logger, following the teacher's
// per-component SetLogger convention.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.log = logger
}

func (r *Registry) logger() *slog.Logger {
	if r.log == nil {
		return slog.Default()
	}
	return r.log
}

func comparePort(a, b uint16) int { return int(a) - int(b) }

func (r *Registry) tree(kind header.Kind) *avl.Tree[uint16, *Subscription] {
	if r.trees[kind] == nil {
		r.trees[kind] = avl.New[uint16, *Subscription](comparePort)
	}
	return r.trees[kind]
}

// Find returns the subscription registered for (kind, port), or nil.
func (r *Registry) Find(kind header.Kind, port uint16) *Subscription {
	n := r.tree(kind).Search(port)
	if n == nil {
		return nil
	}
	return n.Value
}

// Subscribe registers interest in (kind, port). If a subscription already
// exists for that key it is removed first, together with its session tree,
// and Subscribe returns the new subscription with replaced=true; otherwise
// replaced is false. alloc is not called: sessions hold no allocator-owned
// storage (see Session).
func (r *Registry) Subscribe(alloc Allocator, kind header.Kind, port uint16, extent int, timeoutUsec uint64) (sub *Subscription, replaced bool, err error) {
	replaced = r.unsubscribe(kind, port)

	tree := r.tree(kind)
	s := &Subscription{
		Kind:        kind,
		Port:        port,
		Extent:      extent,
		TimeoutUsec: timeoutUsec,
		sessions:    avl.New[uint16, *Session](compareNodeID),
	}
	_, _ = tree.FindOrInsert(port, func() *Subscription { return s })
	if replaced {
		r.logger().Info("subscription replaced", "kind", kind, "port", port, "extent", extent)
	} else {
		r.logger().Info("subscription added", "kind", kind, "port", port, "extent", extent)
	}
	return s, replaced, nil
}

// Unsubscribe removes the subscription for (kind, port). It reports
// whether a subscription was found. alloc is accepted to match the
// spec's allocator-symmetric unsubscribe contract, but since sessions in
// this single-frame-only transport hold no allocator-owned payload
// buffer (see Session), there is nothing left for alloc to free once the
// session tree itself is dropped for the garbage collector to reclaim.
func (r *Registry) Unsubscribe(alloc Allocator, kind header.Kind, port uint16) bool {
	if !r.unsubscribe(kind, port) {
		r.logger().Warn("unsubscribe requested for unknown subscription", "kind", kind, "port", port)
		return false
	}
	r.logger().Info("subscription removed", "kind", kind, "port", port)
	return true
}

func (r *Registry) unsubscribe(kind header.Kind, port uint16) bool {
	tree := r.tree(kind)
	n := tree.Search(port)
	if n == nil {
		return false
	}
	tree.Remove(n)
	return true
}
