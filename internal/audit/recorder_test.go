package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type captureStore struct {
	events []*Event
	err    error
}

func (c *captureStore) Append(ctx context.Context, e *Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, e)
	return nil
}

func (c *captureStore) List(context.Context, Filter) ([]Event, Page, error) {
	panic("not used")
}
func (c *captureStore) Get(context.Context, string) (*Event, error) { panic("not used") }
func (c *captureStore) Delete(context.Context, string) error        { panic("not used") }

func requestCtx() context.Context {
	return WithRequestInfo(context.Background(), RequestInfo{
		RequestID: "req-1",
		IP:        "10.0.0.1",
		Path:      "/v1/users/acc-2",
	})
}

func newTestRecorder(t *testing.T, store Store) *Recorder {
	t.Helper()
	r, err := NewRecorder(store)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	return r
}

func TestRecordAuthorizationBreach(t *testing.T) {
	store := &captureStore{}
	r := newTestRecorder(t, store)

	ctx := requestCtx()
	SetContextUser(ctx, "acc-1")
	if err := r.RecordAuthorizationBreach(ctx, "subject no longer exists"); err != nil {
		t.Fatalf("RecordAuthorizationBreach: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("events = %d, want 1", len(store.events))
	}
	e := store.events[0]
	if e.Action != ActionAuthorizationBreach {
		t.Errorf("action = %q", e.Action)
	}
	if e.UserID != "acc-1" {
		t.Errorf("user_id = %q, want acc-1", e.UserID)
	}
	if e.IP != "10.0.0.1" {
		t.Errorf("ip = %q", e.IP)
	}
	if !strings.Contains(e.Details, "subject no longer exists") ||
		!strings.Contains(e.Details, "/v1/users/acc-2") {
		t.Errorf("details = %q, want reason and path", e.Details)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("id and created_at must be assigned")
	}
}

func TestRecordBreachWithoutProvenance(t *testing.T) {
	r := newTestRecorder(t, &captureStore{})
	if err := r.RecordAuthorizationBreach(context.Background(), "x"); err == nil {
		t.Fatal("expected error without request provenance")
	}
}

func TestRecordExceptionRequiresCause(t *testing.T) {
	r := newTestRecorder(t, &captureStore{})
	if err := r.RecordException(requestCtx(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecordException(t *testing.T) {
	store := &captureStore{}
	r := newTestRecorder(t, store)
	if err := r.RecordException(requestCtx(), errors.New("boom")); err != nil {
		t.Fatalf("RecordException: %v", err)
	}
	if len(store.events) != 1 || store.events[0].Action != ActionException {
		t.Fatalf("events = %+v, want one exception", store.events)
	}
	if !strings.Contains(store.events[0].Details, "boom") {
		t.Errorf("details = %q, want cause", store.events[0].Details)
	}
}

func TestRecordSlowPerformanceRejectsNonPositive(t *testing.T) {
	r := newTestRecorder(t, &captureStore{})
	for _, elapsed := range []int64{0, -5} {
		if err := r.RecordSlowPerformance(requestCtx(), elapsed); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("elapsed %d: expected ErrInvalidInput, got %v", elapsed, err)
		}
	}
}

func TestRecordSlowPerformance(t *testing.T) {
	store := &captureStore{}
	r := newTestRecorder(t, store)
	if err := r.RecordSlowPerformance(requestCtx(), 1500); err != nil {
		t.Fatalf("RecordSlowPerformance: %v", err)
	}
	if len(store.events) != 1 || store.events[0].Action != ActionSlowPerformance {
		t.Fatalf("events = %+v, want one slow_performance", store.events)
	}
	if !strings.Contains(store.events[0].Details, "1500ms") {
		t.Errorf("details = %q, want elapsed millis", store.events[0].Details)
	}
}

func TestRecordSurvivesCanceledRequest(t *testing.T) {
	store := &captureStore{}
	r := newTestRecorder(t, store)
	ctx, cancel := context.WithCancel(requestCtx())
	cancel()
	if err := r.RecordAuthorizationBreach(ctx, "late write"); err != nil {
		t.Fatalf("write must survive request cancellation: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("events = %d, want 1", len(store.events))
	}
}

func TestRecordStoreErrorSurfaces(t *testing.T) {
	boom := errors.New("db down")
	r := newTestRecorder(t, &captureStore{err: boom})
	if err := r.RecordException(requestCtx(), errors.New("x")); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSetContextUserBeforeAttach(t *testing.T) {
	// Must be a no-op, not a panic.
	SetContextUser(context.Background(), "acc-1")
}
