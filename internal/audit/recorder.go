package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"identra.org/internal/ids"
	"identra.org/internal/obs"
)

const defaultWriteTimeout = 3 * time.Second

// Recorder turns security/operational conditions into persisted audit events.
// Writes run on a context detached from request cancellation with their own
// bounded timeout, so a client disconnect cannot leave a half-recorded breach
// and a stuck store cannot block the error response indefinitely.
type Recorder struct {
	store        Store
	writeTimeout time.Duration
	now          func() time.Time
}

// RecorderOption configures Recorder behavior.
type RecorderOption func(*Recorder)

// WithWriteTimeout bounds each audit write separately from the request.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, opts ...RecorderOption) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit: store is required")
	}
	r := &Recorder{store: store, writeTimeout: defaultWriteTimeout, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RecordAuthorizationBreach persists a breach event for the current request.
// The actor may be unresolved (anonymous); missing IP or path provenance is an
// operational error, breach events never degrade silently.
func (r *Recorder) RecordAuthorizationBreach(ctx context.Context, reason string) error {
	info, err := r.provenance(ctx)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "authorization breach"
	}
	return r.append(ctx, &Event{
		Action:  ActionAuthorizationBreach,
		UserID:  info.UserID,
		IP:      info.IP,
		Details: fmt.Sprintf("%s (path %s)", reason, info.Path),
	})
}

// RecordException persists an unhandled-exception event. A nil cause is a
// caller contract violation.
func (r *Recorder) RecordException(ctx context.Context, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: exception cause is required", ErrInvalidInput)
	}
	info, err := r.provenance(ctx)
	if err != nil {
		return err
	}
	return r.append(ctx, &Event{
		Action:  ActionException,
		UserID:  info.UserID,
		IP:      info.IP,
		Details: fmt.Sprintf("%s (path %s)", cause.Error(), info.Path),
	})
}

// RecordSlowPerformance persists a slow-request event. A non-positive elapsed
// time is rejected as an invalid argument, never clamped.
func (r *Recorder) RecordSlowPerformance(ctx context.Context, elapsedMillis int64) error {
	if elapsedMillis <= 0 {
		return fmt.Errorf("%w: elapsed time must be positive", ErrInvalidInput)
	}
	info, err := r.provenance(ctx)
	if err != nil {
		return err
	}
	return r.append(ctx, &Event{
		Action:  ActionSlowPerformance,
		UserID:  info.UserID,
		IP:      info.IP,
		Details: fmt.Sprintf("request took %dms (path %s)", elapsedMillis, info.Path),
	})
}

func (r *Recorder) provenance(ctx context.Context) (RequestInfo, error) {
	info, ok := RequestInfoFromContext(ctx)
	if !ok || info.IP == "" || info.Path == "" {
		return RequestInfo{}, errors.New("audit: request provenance unavailable")
	}
	return info, nil
}

func (r *Recorder) append(ctx context.Context, event *Event) error {
	now := r.now().UTC()
	if event.ID == "" {
		event.ID = ids.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if err := event.Validate(now); err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()
	if err := r.store.Append(writeCtx, event); err != nil {
		return fmt.Errorf("audit: append %s: %w", event.Action, err)
	}

	obs.IncAuditEvent(string(event.Action))
	obs.Info("audit_event", map[string]any{
		"event_id": event.ID,
		"action":   string(event.Action),
		"user_id":  event.UserID,
		"ip":       event.IP,
		"details":  event.Details,
	})
	return nil
}
