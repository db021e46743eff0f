package export

type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeRemoved   ChangeKind = "removed"
	ChangeChanged   ChangeKind = "changed"
	ChangeUnchanged ChangeKind = "unchanged"
)

// Change is the fate of one screenshot file between two runs.
type Change struct {
	Filename string     `json:"filename"`
	URL      string     `json:"url"`
	Kind     ChangeKind `json:"kind"`
	OldHash  string     `json:"old_hash,omitempty"`
	NewHash  string     `json:"new_hash,omitempty"`
}

// Compare matches screenshots by filename. Only successful captures take
// part: a file that failed in one run counts as absent from that run.
// Changes follow the order of next, with removals appended in the order of prev.
func Compare(prev, next *Manifest) []Change {
	before := make(map[string]string)
	for _, r := range prev.Screenshots {
		if r.OK() {
			before[r.Filename] = r.Hash
		}
	}

	var changes []Change
	seen := make(map[string]bool)
	for _, r := range next.Screenshots {
		if !r.OK() {
			continue
		}
		seen[r.Filename] = true
		c := Change{Filename: r.Filename, URL: r.URL, NewHash: r.Hash}
		old, ok := before[r.Filename]
		switch {
		case !ok:
			c.Kind = ChangeAdded
		case old != r.Hash:
			c.Kind, c.OldHash = ChangeChanged, old
		default:
			c.Kind, c.OldHash = ChangeUnchanged, old
		}
		changes = append(changes, c)
	}

	for _, r := range prev.Screenshots {
		if r.OK() && !seen[r.Filename] {
			seen[r.Filename] = true
			changes = append(changes, Change{Filename: r.Filename, URL: r.URL, Kind: ChangeRemoved, OldHash: r.Hash})
		}
	}
	return changes
}

// HasDifferences reports whether any change is not ChangeUnchanged.
func HasDifferences(changes []Change) bool {
	for _, c := range changes {
		if c.Kind != ChangeUnchanged {
			return true
		}
	}
	return false
}
