package tree

import "sync"

// BusyIndicator hands out user-visible progress handles. Multiple handles
// may be outstanding at once; every acquired handle must be released on
// every exit path. Releasing a handle twice is harmless.
type BusyIndicator interface {
	// Begin shows message and returns its release function.
	Begin(message string) (release func())

	// Clear drops every outstanding handle. Used when the tree abandons
	// all in-flight work (authentication lost).
	Clear()
}

// NopBusy is a BusyIndicator that shows nothing.
type NopBusy struct{}

func (NopBusy) Begin(string) func() { return func() {} }
func (NopBusy) Clear()              {}

// BusyTracker is a reference BusyIndicator that forwards to Show/Hide
// callbacks and tracks outstanding handles. The host view embeds one,
// wiring the callbacks to status-bar messages.
type BusyTracker struct {
	Show func(id int, message string)
	Hide func(id int)

	mu          sync.Mutex
	nextID      int
	outstanding map[int]struct{}
}

// NewBusyTracker builds a tracker over the given callbacks. Either callback
// may be nil.
func NewBusyTracker(show func(id int, message string), hide func(id int)) *BusyTracker {
	return &BusyTracker{
		Show:        show,
		Hide:        hide,
		outstanding: make(map[int]struct{}),
	}
}

// Begin implements BusyIndicator.
func (b *BusyTracker) Begin(message string) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.outstanding[id] = struct{}{}
	b.mu.Unlock()

	if b.Show != nil {
		b.Show(id, message)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			_, live := b.outstanding[id]
			delete(b.outstanding, id)
			b.mu.Unlock()
			if live && b.Hide != nil {
				b.Hide(id)
			}
		})
	}
}

// Clear implements BusyIndicator.
func (b *BusyTracker) Clear() {
	b.mu.Lock()
	ids := make([]int, 0, len(b.outstanding))
	for id := range b.outstanding {
		ids = append(ids, id)
	}
	b.outstanding = make(map[int]struct{})
	b.mu.Unlock()

	if b.Hide != nil {
		for _, id := range ids {
			b.Hide(id)
		}
	}
}

// Outstanding returns the number of unreleased handles.
func (b *BusyTracker) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.outstanding)
}
