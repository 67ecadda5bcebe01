package refresh

import (
	"github.com/tnunamak/claudebar/internal/api"
	"github.com/tnunamak/claudebar/internal/display"
)

// Surface is the display the controller publishes to. Publish is called
// from the controller's worker goroutine, never concurrently with itself.
type Surface interface {
	Publish(display.State)
}

// TitleColorer is implemented by surfaces that can color the title by tier.
// Surfaces without the capability simply show the plain title.
type TitleColorer interface {
	SetTitleColor(display.Tier) error
}

// SnapshotObserver is implemented by surfaces that want the raw snapshot
// behind each data state, e.g. for threshold notifications.
type SnapshotObserver interface {
	ObserveSnapshot(api.Snapshot)
}

// Surfaces fans one publish out to several surfaces.
type Surfaces []Surface

func (s Surfaces) Publish(st display.State) {
	for _, sf := range s {
		sf.Publish(st)
	}
}

func (s Surfaces) SetTitleColor(t display.Tier) error {
	var first error
	for _, sf := range s {
		if tc, ok := sf.(TitleColorer); ok {
			if err := tc.SetTitleColor(t); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

func (s Surfaces) ObserveSnapshot(snap api.Snapshot) {
	for _, sf := range s {
		if o, ok := sf.(SnapshotObserver); ok {
			o.ObserveSnapshot(snap)
		}
	}
}
