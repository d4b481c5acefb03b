package audit

import "context"

// Filter narrows List results. A zero Action means all kinds.
type Filter struct {
	Action   Action
	Page     int
	PageSize int
}

// Page carries pagination metadata alongside a listed page of events.
type Page struct {
	TotalCount  int `json:"total_count"`
	PageSize    int `json:"page_size"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// Store persists audit events. Append is a single atomic write; events are
// never updated. Delete is an explicit administrative operation.
type Store interface {
	Append(ctx context.Context, event *Event) error
	List(ctx context.Context, filter Filter) ([]Event, Page, error)
	Get(ctx context.Context, id string) (*Event, error)
	Delete(ctx context.Context, id string) error
}
