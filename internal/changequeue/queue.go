package changequeue

import (
	"strings"

	"github.com/fekuna/omnipos-catalog-gate/config"
)

// Kind is the field-changed event a simple label maps to.
type Kind string

const (
	KindTitle Kind = "title"
	KindPrice Kind = "price"
	KindHSN   Kind = "hsn"
	KindTax   Kind = "tax"
)

// Entry is one simple label with its webhook kind.
type Entry struct {
	Label string
	Kind  Kind
}

// Snapshot is the pending-changes list as read at the start of a product. It is never mutated.
type Snapshot struct {
	labels []string
}

func NewSnapshot(labels []string) Snapshot {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return Snapshot{labels: out}
}

func (s Snapshot) Empty() bool { return len(s.labels) == 0 }

func (s Snapshot) Has(label string) bool {
	for _, l := range s.labels {
		if l == label {
			return true
		}
	}
	return false
}

func (s Snapshot) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Outcomes collects the labels whose action succeeded during one product's processing.
type Outcomes struct {
	acked map[string]bool
}

func (o *Outcomes) Ack(label string) {
	if o.acked == nil {
		o.acked = make(map[string]bool)
	}
	o.acked[label] = true
}

func (o *Outcomes) Acked(label string) bool {
	return o.acked[label]
}

// Reduce returns the snapshot minus every acknowledged label, preserving order.
// Unknown labels are kept untouched.
func Reduce(s Snapshot, o *Outcomes) []string {
	out := make([]string, 0, len(s.labels))
	for _, l := range s.labels {
		if o.Acked(l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Changed reports whether the reduced list differs from what was read.
func Changed(s Snapshot, reduced []string) bool {
	if len(reduced) != len(s.labels) {
		return true
	}
	for i := range reduced {
		if reduced[i] != s.labels[i] {
			return true
		}
	}
	return false
}

// Queue classifies a snapshot against one tenant's label strings.
type Queue struct {
	labels config.Labels
}

func New(labels config.Labels) *Queue {
	return &Queue{labels: labels}
}

// Simple returns the field-changed labels present in s, in insertion order.
func (q *Queue) Simple(s Snapshot) []Entry {
	kinds := map[string]Kind{
		q.labels.TitleUpdated: KindTitle,
		q.labels.PriceUpdated: KindPrice,
		q.labels.HSNUpdated:   KindHSN,
		q.labels.TaxUpdated:   KindTax,
	}
	var out []Entry
	seen := make(map[string]bool)
	for _, l := range s.labels {
		k, ok := kinds[l]
		if !ok || l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, Entry{Label: l, Kind: k})
	}
	return out
}

func (q *Queue) FullCheck() string { return q.labels.FullCheck }

func (q *Queue) WantsFullCheck(s Snapshot) bool {
	return q.labels.FullCheck != "" && s.Has(q.labels.FullCheck)
}
