package creditcycle

import (
	"errors"
	"testing"
	"time"

	"github.com/tinoosan/groupledger/internal/errs"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		today       time.Time
		closing     int
		due         int
		wantClosing time.Time
		wantDue     time.Time
	}{
		{"past closing rolls both", time.Date(2024, 3, 12, 15, 30, 0, 0, time.UTC), 10, 15, day(2024, 4, 10), day(2024, 4, 15)},
		{"due before closing rolls due", day(2024, 3, 5), 10, 5, day(2024, 3, 10), day(2024, 4, 5)},
		{"same day as closing stays", day(2024, 3, 10), 10, 15, day(2024, 3, 10), day(2024, 3, 15)},
		{"due before closing and past closing", day(2024, 3, 20), 10, 5, day(2024, 4, 10), day(2024, 5, 5)},
		{"year rollover", day(2024, 12, 28), 25, 5, day(2025, 1, 25), day(2025, 2, 5)},
		{"clamp closing to february end", day(2024, 2, 10), 31, 10, day(2024, 2, 29), day(2024, 3, 10)},
		{"clamp non-leap february", day(2023, 2, 1), 30, 31, day(2023, 2, 28), day(2023, 2, 28)},
		{"roll from january 31 lands in february", day(2023, 1, 31), 30, 5, day(2023, 2, 28), day(2023, 3, 5)},
		{"due on last day of march", day(2024, 3, 2), 5, 31, day(2024, 3, 5), day(2024, 3, 31)},
		{"clamp due after roll", day(2024, 3, 20), 15, 31, day(2024, 4, 15), day(2024, 4, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.today, tt.closing, tt.due)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if !got.ClosingDate.Equal(tt.wantClosing) {
				t.Errorf("closing = %s, want %s", got.ClosingDate.Format(time.DateOnly), tt.wantClosing.Format(time.DateOnly))
			}
			if !got.DueDate.Equal(tt.wantDue) {
				t.Errorf("due = %s, want %s", got.DueDate.Format(time.DateOnly), tt.wantDue.Format(time.DateOnly))
			}
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	today := time.Date(2024, 7, 19, 8, 0, 0, 0, time.UTC)
	a, err := Compute(today, 28, 3)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	b, _ := Compute(today, 28, 3)
	if a != b {
		t.Errorf("two calls differ: %+v vs %+v", a, b)
	}
}

func TestComputeRejectsOutOfRangeDays(t *testing.T) {
	for _, c := range [][2]int{{0, 5}, {32, 5}, {5, 0}, {5, 40}} {
		if _, err := Compute(day(2024, 1, 1), c[0], c[1]); !errors.Is(err, errs.ErrInvalid) {
			t.Errorf("Compute(%d, %d) err = %v, want ErrInvalid", c[0], c[1], err)
		}
	}
}

func TestComputeKeepsLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	got, err := Compute(time.Date(2024, 3, 12, 23, 0, 0, 0, loc), 10, 15)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.ClosingDate.Location() != loc {
		t.Errorf("location = %v, want %v", got.ClosingDate.Location(), loc)
	}
	if got.ClosingDate.Hour() != 0 {
		t.Errorf("closing date not at midnight: %v", got.ClosingDate)
	}
}

func TestInClosingPeriod(t *testing.T) {
	c := Cycle{ClosingDate: day(2024, 3, 10), DueDate: day(2024, 3, 15)}
	tests := []struct {
		today time.Time
		want  bool
	}{
		{day(2024, 3, 9), false},
		{time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC), true},
		{day(2024, 3, 12), true},
		{time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC), true},
		{day(2024, 3, 16), false},
	}
	for _, tt := range tests {
		if got := c.InClosingPeriod(tt.today); got != tt.want {
			t.Errorf("InClosingPeriod(%s) = %v, want %v", tt.today.Format(time.RFC3339), got, tt.want)
		}
	}
}

func TestComputedCycleOnClosingDayIsInPeriod(t *testing.T) {
	today := day(2024, 3, 10)
	c, err := Compute(today, 10, 15)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !c.InClosingPeriod(today) {
		t.Errorf("expected closing day to be in the closing period")
	}
	c, _ = Compute(day(2024, 3, 9), 10, 15)
	if c.InClosingPeriod(day(2024, 3, 9)) {
		t.Errorf("day before closing should not be in the closing period")
	}
}

func TestDaysIn(t *testing.T) {
	if DaysIn(2024, time.February) != 29 || DaysIn(2023, time.February) != 28 || DaysIn(2024, time.April) != 30 {
		t.Errorf("DaysIn returned unexpected values")
	}
}
