package sync

// Triggers are the predicates that force a full rebuild regardless of what
// the validator concluded.
type Triggers struct {
	// BranchMissing: no publish branch exists anywhere, first-ever publish.
	BranchMissing bool
	// Untrusted: no record found, or its source hash did not resolve.
	Untrusted bool
	// ConfigPathTouched: the diff touches the reserved configuration
	// directory. Changes there can alter rendering globally, so a partial
	// re-render would be incorrect.
	ConfigPathTouched bool
}

// FullRebuild reports whether any trigger fired.
func (t Triggers) FullRebuild() bool {
	return t.BranchMissing || t.Untrusted || t.ConfigPathTouched
}

// Reason names the first trigger that fired, for logs.
func (t Triggers) Reason() string {
	switch {
	case t.BranchMissing:
		return "publish branch missing"
	case t.Untrusted:
		return "prior synchronization point untrusted"
	case t.ConfigPathTouched:
		return "reserved configuration path touched"
	default:
		return ""
	}
}
