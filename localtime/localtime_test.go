package localtime

import "testing"

func TestConvertKnownTime(t *testing.T) {
	got, err := Convert("1990-01-01", "07:30", false, "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UTC != "1990-01-01T12:30:00Z" {
		t.Errorf("UTC = %q, want 1990-01-01T12:30:00Z", got.UTC)
	}
	if got.AssumedNoon {
		t.Error("assumedNoon should be false for a known time")
	}
	if got.LocalTimeUsed != "07:30" {
		t.Errorf("localTimeUsed = %q", got.LocalTimeUsed)
	}
}

func TestConvertUnknownTimeAssumesNoon(t *testing.T) {
	got, err := Convert("1990-06-15", "", true, "Europe/Paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.AssumedNoon {
		t.Error("assumedNoon should be true")
	}
	if got.LocalTimeUsed != "12:00" {
		t.Errorf("localTimeUsed = %q, want 12:00", got.LocalTimeUsed)
	}
	// Paris is UTC+2 in June (DST).
	if got.UTC != "1990-06-15T10:00:00Z" {
		t.Errorf("UTC = %q, want 1990-06-15T10:00:00Z", got.UTC)
	}
}

func TestConvertInvalidTimezone(t *testing.T) {
	for _, tz := range []string{"Not/AZone", "", "Local", "america/new_york "} {
		if _, err := Convert("1990-01-01", "07:30", false, tz); err == nil {
			t.Errorf("timezone %q: expected error", tz)
		}
	}
}

func TestConvertMissingTime(t *testing.T) {
	if _, err := Convert("1990-01-01", "", false, "UTC"); err == nil {
		t.Fatal("expected error when time absent and not marked unknown")
	}
}

func TestConvertStrictParsing(t *testing.T) {
	bad := []struct{ date, time string }{
		{"1990-1-01", "07:30"},
		{"01-01-1990", "07:30"},
		{"1990-13-01", "07:30"},
		{"1990-01-32", "07:30"},
		{"1990-01-01", "7:30"},
		{"1990-01-01", "24:00"},
		{"1990-01-01", "07:60"},
		{"1990-01-01", "07:30:15"},
	}
	for _, tt := range bad {
		if _, err := Convert(tt.date, tt.time, false, "UTC"); err == nil {
			t.Errorf("date=%q time=%q: expected error", tt.date, tt.time)
		}
	}
}

func TestConvertNonexistentLocalInstant(t *testing.T) {
	// 2021-03-14 02:30 does not exist in America/New_York (spring forward).
	if _, err := Convert("2021-03-14", "02:30", false, "America/New_York"); err == nil {
		t.Fatal("expected error for nonexistent DST instant")
	}
}

func TestConvertNonexistentDate(t *testing.T) {
	if _, err := Convert("2021-02-30", "10:00", false, "UTC"); err == nil {
		t.Fatal("expected error for February 30th")
	}
}
