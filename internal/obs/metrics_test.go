package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/healthz", "/healthz"},
		{"/v1/users", "/v1/users"},
		{"/v1/users/01ABCDEF", "/v1/users/:id"},
		{"/v1/audit-logs/01ABCDEF", "/v1/audit-logs/:id"},
		{"/v1/audit-logs", "/v1/audit-logs"},
		{"/v1/users/01ABCDEF?x=1", "/v1/users/:id"},
	}
	for _, tc := range cases {
		if got := CanonicalPath(tc.in); got != tc.want {
			t.Errorf("CanonicalPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
