package reconcile

import "github.com/dmitrijs2005/recipesync/internal/syncproto"

// Strategy is an automatic resolution.
type Strategy string

const (
	KeepLocal  Strategy = "KEEP_LOCAL"
	KeepRemote Strategy = "KEEP_REMOTE"
	// Merge is reserved; it is applied exactly like KeepLocal.
	Merge Strategy = "MERGE"
)

// ConflictInfo is what the resolver sees of a conflicting entity.
type ConflictInfo struct {
	EntityID        string
	EntityType      syncproto.EntityType
	LocalTimestamp  int64
	RemoteTimestamp int64
	RemoteData      map[string]any
	IsPinned        bool
}

// Decision is either Resolved with a Strategy or RequiresUserInput.
type Decision struct {
	Strategy          Strategy
	RequiresUserInput bool
}

func (d Decision) Resolved() bool { return !d.RequiresUserInput }

// Resolver decides conflicts. Resolve is the default implementation.
type Resolver interface {
	Resolve(c ConflictInfo) Decision
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(c ConflictInfo) Decision

func (f ResolverFunc) Resolve(c ConflictInfo) Decision { return f(c) }

// NewestWins is the default resolver.
var NewestWins Resolver = ResolverFunc(Resolve)

// Resolve never auto-resolves pinned entities; otherwise the strictly newer
// local edit wins and ties go to the remote side.
func Resolve(c ConflictInfo) Decision {
	if c.IsPinned {
		return Decision{RequiresUserInput: true}
	}
	if c.LocalTimestamp > c.RemoteTimestamp {
		return Decision{Strategy: KeepLocal}
	}
	return Decision{Strategy: KeepRemote}
}
