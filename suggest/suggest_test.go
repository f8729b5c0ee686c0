package suggest

import "testing"

func TestPath(t *testing.T) {
	tests := []struct {
		name       string
		want       string
		candidates []string
		suggestion string
	}{
		{"Exact", "db.host", []string{"db.host", "db.port"}, "db.host"},
		{"Case", "DB.Host", []string{"db.host"}, "db.host"},
		{"Typo", "db.hst", []string{"db.host", "db.port"}, "db.host"},
		{"Short", "prt", []string{"port"}, "port"},
		{"TooFar", "credentials", []string{"db.host", "db.port"}, ""},
		{"NoCandidates", "db.host", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Path(tt.want, tt.candidates)
			if got != tt.suggestion {
				t.Errorf("Path(%q) = %q, want %q", tt.want, got, tt.suggestion)
			}
		})
	}
}
