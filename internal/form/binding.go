package form

import (
	"reflect"
	"sort"
	"sync"

	"github.com/muurk/adminkit/internal/dataprovider"
)

// Binding holds the values of a form and the snapshot Reset returns to.
type Binding struct {
	mu       sync.RWMutex
	data     dataprovider.Record
	snapshot dataprovider.Record
}

// NewBinding returns a Binding whose data and snapshot are copies of initial.
func NewBinding(initial map[string]any) *Binding {
	data := dataprovider.Record(initial).Clone()
	if data == nil {
		data = dataprovider.Record{}
	}
	return &Binding{data: data, snapshot: data.Clone()}
}

// Get returns the value of field.
func (b *Binding) Get(field string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[field]
	return v, ok
}

// Set assigns field.
func (b *Binding) Set(field string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[field] = v
}

// Delete removes field.
func (b *Binding) Delete(field string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, field)
}

// Data returns a copy of the current values.
func (b *Binding) Data() dataprovider.Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data.Clone()
}

// Fields returns the current field names, sorted.
func (b *Binding) Fields() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.data))
	for k := range b.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Replace swaps in new values, keeping the snapshot.
func (b *Binding) Replace(r dataprovider.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = cloneOrEmpty(r)
}

// Load replaces both values and snapshot.
func (b *Binding) Load(r dataprovider.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = cloneOrEmpty(r)
	b.snapshot = cloneOrEmpty(r)
}

// Snapshot returns a copy of the snapshot.
func (b *Binding) Snapshot() dataprovider.Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot.Clone()
}

// Rebase makes r the new snapshot without touching the current values.
func (b *Binding) Rebase(r dataprovider.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = cloneOrEmpty(r)
}

// Reset restores the values to the snapshot.
func (b *Binding) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = b.snapshot.Clone()
}

// Dirty reports whether the values differ from the snapshot.
func (b *Binding) Dirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !reflect.DeepEqual(b.data, b.snapshot)
}

// Clone returns an independent Binding with the same values and snapshot.
func (b *Binding) Clone() *Binding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Binding{data: b.data.Clone(), snapshot: b.snapshot.Clone()}
}

func cloneOrEmpty(r dataprovider.Record) dataprovider.Record {
	if r == nil {
		return dataprovider.Record{}
	}
	return r.Clone()
}
