package scheduler

import (
	"testing"
	"time"
)

func TestParseSpecVariants(t *testing.T) {
	t.Parallel()
	ref := time.Date(2026, 3, 2, 10, 30, 0, 0, time.Local)

	tests := []struct {
		name string
		raw  string
		next time.Time
	}{
		{"plain duration", "2h", ref.Add(2 * time.Hour)},
		{"minutes", "45m", ref.Add(45 * time.Minute)},
		{"descriptor every", "@every 90m", ref.Add(90 * time.Minute)},
		{"cron hourly", "@hourly", time.Date(2026, 3, 2, 11, 0, 0, 0, time.Local)},
		{"cron daily 0100", "0 1 * * *", time.Date(2026, 3, 3, 1, 0, 0, 0, time.Local)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			sch, err := parseSpec(tt.raw)
			if err != nil {
				t.Fatalf("parseSpec(%q): %v", tt.raw, err)
			}
			if got := sch.Next(ref); !got.Equal(tt.next) {
				t.Fatalf("Next = %v, want %v", got, tt.next)
			}
		})
	}
}

func TestParseSpecInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "  ", "-2h", "0s", "every tuesday", "* * *"} {
		if _, err := parseSpec(raw); err == nil {
			t.Fatalf("parseSpec(%q) accepted invalid spec", raw)
		}
	}
}
