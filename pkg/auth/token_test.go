package auth

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenFor(t *testing.T) {
	tests := []struct {
		name     string
		password string
		at       time.Time
		expected string
	}{
		{
			name:     "default password",
			password: DefaultPassword,
			at:       time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			expected: "c95aa58c2bd994b8b6f5f4eb4f6214e1",
		},
		{
			name:     "next day",
			password: DefaultPassword,
			at:       time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
			expected: "666d79767d669192013f7324e38e979a",
		},
		{
			name:     "custom password",
			password: "secret",
			at:       time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC),
			expected: "6dd3f339b2f9354ff233af9ecc7b52a7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenFor(tt.password, tt.at)
			if got != tt.expected {
				t.Errorf("TokenFor(%q, %v) = %q, want %q", tt.password, tt.at, got, tt.expected)
			}
		})
	}
}

func TestTokenFor_UsesUTCDate(t *testing.T) {
	// 2024-01-16 01:00 in UTC+3 is still 2024-01-15 in UTC.
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2024, 1, 16, 1, 0, 0, 0, loc)

	got := TokenFor(DefaultPassword, local)
	want := "c95aa58c2bd994b8b6f5f4eb4f6214e1"
	if got != want {
		t.Errorf("TokenFor() = %q, want UTC-date token %q", got, want)
	}
}

func TestProvider_StableWithinDay(t *testing.T) {
	day := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	p := NewProvider("")

	p.Now = fixedClock(day)
	morning := p.Token()

	p.Now = fixedClock(day.Add(23*time.Hour + 59*time.Minute))
	evening := p.Token()

	if morning != evening {
		t.Errorf("token changed within one UTC day: %q vs %q", morning, evening)
	}

	p.Now = fixedClock(day.Add(24 * time.Hour))
	if next := p.Token(); next == morning {
		t.Error("token should change when the UTC date changes")
	}
}

func TestNewProvider_Defaults(t *testing.T) {
	p := NewProvider("")
	if p.Password != DefaultPassword {
		t.Errorf("Password = %q, want %q", p.Password, DefaultPassword)
	}
	if p.Now == nil {
		t.Error("Now should default to time.Now")
	}

	if len(p.Token()) != 32 {
		t.Errorf("token length = %d, want 32 hex chars", len(p.Token()))
	}
}

func TestProvider_NilClock(t *testing.T) {
	p := &Provider{Password: DefaultPassword}
	want := TokenFor(DefaultPassword, time.Now())
	if got := p.Token(); got != want {
		t.Errorf("Token() with nil clock = %q, want %q", got, want)
	}
}
