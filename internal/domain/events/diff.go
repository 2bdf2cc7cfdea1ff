package events

import "fmt"

const diffTimeLayout = "Mon, 02 Jan 2006 15:04"

// Diff renders a human-readable change list between the stored event and the
// updated fields, one line per changed field. An empty result means nothing
// changed and registrants need not be notified.
func Diff(old *Event, updated UpdateParams) []string {
	var changes []string

	if old.Title != updated.Title {
		changes = append(changes, fmt.Sprintf("Title changed from %q to %q", old.Title, updated.Title))
	}
	if old.Description != updated.Description {
		changes = append(changes, "Description was updated")
	}
	if !old.Date.Equal(updated.Date) {
		changes = append(changes, fmt.Sprintf("Date changed from %s to %s",
			old.Date.Format(diffTimeLayout), updated.Date.Format(diffTimeLayout)))
	}
	if old.Location != updated.Location {
		changes = append(changes, fmt.Sprintf("Location changed from %q to %q", old.Location, updated.Location))
	}
	if old.MaxSpots != updated.MaxSpots {
		changes = append(changes, fmt.Sprintf("Capacity changed from %d to %d spots", old.MaxSpots, updated.MaxSpots))
	}

	return changes
}
