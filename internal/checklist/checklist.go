// Package checklist holds the ordered system checks an applicant confirms
// before the questions start.
package checklist

import "fmt"

// CheckID identifies one system check.
type CheckID string

const (
	Fathom      CheckID = "fathom"
	Meet        CheckID = "meet"
	NoteKeeper  CheckID = "notekeeper"
	Video       CheckID = "video"
	Audio       CheckID = "audio"
	ScreenShare CheckID = "screenshare"
	Environment CheckID = "environment"
	Timer       CheckID = "timer"
)

var order = []CheckID{Fathom, Meet, NoteKeeper, Video, Audio, ScreenShare, Environment, Timer}

// IDs returns every check in the order it must be completed.
func IDs() []CheckID {
	return append([]CheckID(nil), order...)
}

// Parse maps a raw identifier to a known check.
func Parse(s string) (CheckID, error) {
	for _, id := range order {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown check %q", s)
}

// Label is the statement the applicant confirms.
func (id CheckID) Label() string {
	switch id {
	case Fathom:
		return "Fathom Installed on browser"
	case Meet:
		return "Google Meet Started"
	case NoteKeeper:
		return "Fathom note taker joined the meeting"
	case Video:
		return "Video is ON"
	case Audio:
		return "Audio is ON"
	case ScreenShare:
		return "Screen sharing is ON (share browser tab)"
	case Environment:
		return "In a quiet environment"
	case Timer:
		return "Timer is set for 30 minutes"
	}
	return string(id)
}

// Item is one entry of a list.
type Item struct {
	ID      CheckID
	Label   string
	Checked bool
}

// List enforces the completion order: item i can change only once every
// earlier item is checked. Checked items always form a prefix. A List is not
// safe for concurrent use.
type List struct {
	checked []bool
}

// New returns a list with every item unchecked.
func New() *List {
	return &List{checked: make([]bool, len(order))}
}

// Len returns the number of items.
func (l *List) Len() int {
	return len(l.checked)
}

// Items returns a snapshot of the list.
func (l *List) Items() []Item {
	items := make([]Item, len(order))
	for i, id := range order {
		items[i] = Item{ID: id, Label: id.Label(), Checked: l.checked[i]}
	}
	return items
}

// CheckedCount returns how many items are checked.
func (l *List) CheckedCount() int {
	n := 0
	for _, c := range l.checked {
		if !c {
			break
		}
		n++
	}
	return n
}

// Enabled reports whether item i may be toggled.
func (l *List) Enabled(i int) bool {
	return i >= 0 && i < len(l.checked) && i <= l.CheckedCount()
}

// Complete reports whether every item is checked.
func (l *List) Complete() bool {
	return l.CheckedCount() == len(l.checked)
}

// Toggle flips item i and reports whether anything changed. Toggling a
// disabled item does nothing. Unchecking an item also unchecks every item
// after it.
func (l *List) Toggle(i int) bool {
	if !l.Enabled(i) {
		return false
	}

	if !l.checked[i] {
		l.checked[i] = true
		return true
	}

	for j := i; j < len(l.checked); j++ {
		l.checked[j] = false
	}
	return true
}

// ToggleID is Toggle addressed by identifier.
func (l *List) ToggleID(id CheckID) bool {
	return l.Toggle(Index(id))
}

// Index returns the position of id, or -1.
func Index(id CheckID) int {
	for i, candidate := range order {
		if candidate == id {
			return i
		}
	}
	return -1
}
