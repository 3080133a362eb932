// Package batch holds the per-item outcome of operations that act on many
// files at once.
package batch

import (
	"fmt"

	"github.com/luinbytes/dupesort/storage"
)

// Failure is one item that could not be processed.
type Failure struct {
	Path string
	Err  error
}

// Reason is the error text shown to users.
func (f Failure) Reason() string {
	if f.Err == nil {
		return "unknown error"
	}
	return f.Err.Error()
}

// Collision reports whether the item failed because its destination was taken.
func (f Failure) Collision() bool {
	return storage.IsCollision(f.Err)
}

// Outcome partitions the items of one batch call.
type Outcome struct {
	Succeeded []string
	Failed    []Failure
}

// Succeed records a processed path.
func (o *Outcome) Succeed(path string) {
	o.Succeeded = append(o.Succeeded, path)
}

// Fail records a path together with the reason it was skipped.
func (o *Outcome) Fail(path string, err error) {
	o.Failed = append(o.Failed, Failure{Path: path, Err: err})
}

// Merge appends the items of other.
func (o *Outcome) Merge(other Outcome) {
	o.Succeeded = append(o.Succeeded, other.Succeeded...)
	o.Failed = append(o.Failed, other.Failed...)
}

// Total is the number of items processed either way.
func (o Outcome) Total() int {
	return len(o.Succeeded) + len(o.Failed)
}

// Collisions counts failures caused by occupied destinations.
func (o Outcome) Collisions() int {
	n := 0
	for _, f := range o.Failed {
		if f.Collision() {
			n++
		}
	}
	return n
}

// Summary renders the counts, e.g. "3 deleted, 1 failed".
func (o Outcome) Summary(verb string) string {
	s := fmt.Sprintf("%d %s", len(o.Succeeded), verb)
	if len(o.Failed) > 0 {
		s += fmt.Sprintf(", %d failed", len(o.Failed))
		if c := o.Collisions(); c > 0 {
			s += fmt.Sprintf(" (%d already existed)", c)
		}
	}
	return s
}
