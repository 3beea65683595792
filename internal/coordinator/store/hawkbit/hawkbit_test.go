package hawkbit

import "testing"

// TestParsePollingSleepHHMMSS covers the Eclipse hawkBit DDI reference
// dialect this package commits to.
func TestParsePollingSleepHHMMSS(t *testing.T) {
	got, err := parsePollingSleep("00:00:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 30 {
		t.Fatalf("expected 30 seconds, got %d", got)
	}
}

func TestParsePollingSleepHoursAndMinutes(t *testing.T) {
	got, err := parsePollingSleep("01:02:03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 1*3600 + 2*60 + 3; got != want {
		t.Fatalf("expected %d seconds, got %d", want, got)
	}
}

// TestParsePollingSleepRejectsOtherForms covers the strict validation of
// the resolved Open Question: any value that is not exactly three integer
// fields is rejected.
func TestParsePollingSleepRejectsOtherForms(t *testing.T) {
	cases := []string{"30", "1:2", "1:2:3:4", "aa:bb:cc"}
	for _, sleep := range cases {
		if _, err := parsePollingSleep(sleep); err == nil {
			t.Errorf("expected parsePollingSleep(%q) to error", sleep)
		}
	}
}
