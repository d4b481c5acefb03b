package audit

import (
	"errors"
	"testing"
	"time"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"authorization_breach", ActionAuthorizationBreach, false},
		{"exception", ActionException, false},
		{"slow_performance", ActionSlowPerformance, false},
		{" Exception ", ActionException, false},
		{"login", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseAction(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseAction(%q): expected ErrInvalidInput, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseAction(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestEventValidate(t *testing.T) {
	now := time.Now().UTC()
	valid := func() *Event {
		return &Event{
			Action:    ActionException,
			IP:        "10.0.0.1",
			Details:   "boom",
			CreatedAt: now,
		}
	}

	if err := valid().Validate(now); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	e := valid()
	e.Action = "made_up"
	if err := e.Validate(now); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown action: expected ErrInvalidInput, got %v", err)
	}

	e = valid()
	e.IP = "  "
	if err := e.Validate(now); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank ip: expected ErrInvalidInput, got %v", err)
	}

	e = valid()
	e.Details = ""
	if err := e.Validate(now); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank details: expected ErrInvalidInput, got %v", err)
	}

	e = valid()
	e.CreatedAt = now.Add(-TimestampTolerance - time.Second)
	if err := e.Validate(now); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("stale timestamp: expected ErrInvalidInput, got %v", err)
	}

	e = valid()
	e.CreatedAt = now.Add(TimestampTolerance + time.Second)
	if err := e.Validate(now); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("future timestamp: expected ErrInvalidInput, got %v", err)
	}

	e = valid()
	e.CreatedAt = now.Add(-TimestampTolerance + time.Second)
	if err := e.Validate(now); err != nil {
		t.Errorf("timestamp inside tolerance rejected: %v", err)
	}
}
