package rx

import (
	"github.com/opencyphal-go/serard/internal/header"
	"github.com/opencyphal-go/serard/pkg/subscription"
)

// dispatch applies the transfer-ID deduplication policy described in the
// reassembler's owning spec and decides whether t should be delivered.
// sub is the subscription already resolved from t's (kind, port) by the
// reassembler when the header was parsed.
//
// Anonymous transfers (unset source node) carry no session tracking and
// are delivered unconditionally. Otherwise the subscription's session for
// the remote node is found or created: a newly created session always
// accepts; an existing session accepts if its last activity is older
// than the subscription's transfer-ID timeout (the session is reset) or
// if the incoming transfer ID differs from the one last recorded.
func dispatch(sub *subscription.Subscription, t *Transfer) (*Transfer, *subscription.Subscription) {
	if t.RemoteNode == header.NodeIDUnset {
		return t, sub
	}

	session, created := sub.FindSession(t.RemoteNode)
	accept := created
	if !created {
		elapsed := t.TimestampUsec - session.LastActivityUsec
		if elapsed > sub.TimeoutUsec {
			accept = true
		} else if t.TransferID != session.LastTransferID {
			accept = true
		}
	}

	if !accept {
		return nil, nil
	}

	session.LastTransferID = t.TransferID
	session.LastActivityUsec = t.TimestampUsec
	return t, sub
}
