package selection

import (
	"windglobe/regions"
)

// Event reports the current location of the selection. It is sent on
// selection and on every animation tick while selected.
type Event struct {
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	Speed           float64 `json:"speed"`
	NormalizedSpeed float64 `json:"normalizedSpeed"`
	Level           string  `json:"level"`
	Color           string  `json:"color"`
	regions.Descriptor
}

// Observer receives selection notifications.
type Observer interface {
	LocationChanged(Event)
	SelectionCleared()
}

// ObserverFuncs adapts a pair of functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnLocation func(Event)
	OnCleared  func()
}

func (o ObserverFuncs) LocationChanged(e Event) {
	if o.OnLocation != nil {
		o.OnLocation(e)
	}
}

func (o ObserverFuncs) SelectionCleared() {
	if o.OnCleared != nil {
		o.OnCleared()
	}
}
