package host

// ReplyKind distinguishes a normal assistant reply from the degraded-service
// fallback.
type ReplyKind int

const (
	// ReplyNormal is a model-produced reply
	ReplyNormal ReplyKind = iota
	// ReplyDegraded is the canned apology substituted when a domain
	// gateway is unreachable or reports failure
	ReplyDegraded
)

// Reply is the outcome of one orchestrator turn
type Reply struct {
	Kind         ReplyKind
	Text         string
	FailedDomain string // set only for ReplyDegraded
}

// Degraded reports whether this is the fallback reply
func (r Reply) Degraded() bool {
	return r.Kind == ReplyDegraded
}
