// Package feed delivers row-change notifications per collection. Consumers
// treat every event as an instruction to re-fetch the whole collection, not
// as an incremental patch.
package feed

import "context"

type Kind string

const (
	Insert Kind = "insert"
	Update Kind = "update"
	Delete Kind = "delete"
)

// Collection names carried on the feed.
const (
	Experiences  = "experiences"
	Skills       = "skills"
	Projects     = "projects"
	Competitions = "competitions"
	About        = "about"
	Resumes      = "resumes"
	Themes       = "themes"
)

type Event struct {
	Collection string `json:"collection"`
	Kind       Kind   `json:"kind"`
	RecordID   string `json:"record_id,omitempty"`
}

// Subscription is one active feed registration. Unsubscribe must be called
// exactly once during teardown; it releases the underlying channel and stops
// callback delivery.
type Subscription interface {
	Unsubscribe()
}

type Feed interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(collection string, fn func(Event)) (Subscription, error)
}
