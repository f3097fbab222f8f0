package feed

import (
	"time"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/event"
)

// Status is the health of a poller's last check.
type Status string

const (
	// StatusIdle: healthy, nothing new on the last check.
	StatusIdle Status = "idle"
	// StatusOK: data delivered on the last check.
	StatusOK Status = "ok"
	// StatusError: the last check failed; ErrorMessage says why.
	StatusError Status = "error"
)

// State is a poller's published view. It is handed out by value.
type State struct {
	FeedID        string
	Category      string
	Status        Status
	Cursor        cursor.Key
	ErrorMessage  string
	TotalReceived int64
	// LastEvent is nil until the first delivery.
	LastEvent *event.Event
	UpdatedAt time.Time
}

// Update is sent to subscribers after every check.
type Update struct {
	State State
	// Items are the events delivered by this check, possibly none.
	Items []event.Event
}

// Observer receives poll and prune outcomes; internal/metrics implements it.
type Observer interface {
	ObservePoll(category, status string, received int)
	ObservePrune(category string, expired, evicted, size int)
}

type nopObserver struct{}

func (nopObserver) ObservePoll(string, string, int)    {}
func (nopObserver) ObservePrune(string, int, int, int) {}
