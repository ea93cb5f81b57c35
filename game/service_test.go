package game

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/vanderwood/midgard/config"
	"github.com/vanderwood/midgard/store"
	"github.com/vanderwood/midgard/testutil"
)

func testTuning() config.Tuning {
	return config.Tuning{
		CheckinBase:        100,
		CheckinEarly:       200,
		CheckinFirst:       300,
		CheckinEarlyWindow: 30 * time.Minute,
		RaidAward:          250,
		SentryAward:        25,
		SentryWatchMins:    30,
		SentryLength:       5 * time.Minute,
		SentryInterval:     30 * time.Minute,
		SubTier1:           500,
		SubTier2:           1000,
		SubTier3:           2500,
		HighlightAward:     250,
		GiveawayWindow:     90 * time.Second,
		GiveawayInterval:   5 * time.Second,
		ModLogRewardID:     "mod-log-reward",
	}
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	database := testutil.SetupTestDB(t)
	clk := &testClock{t: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)}
	svc := New(store.New(database), testTuning(),
		WithClock(clk.Now),
		WithRand(rand.New(rand.NewSource(1))))
	return svc, clk
}

// seedChannel registers a channel with two clans and returns its name.
func seedChannel(t *testing.T, svc *Service) string {
	t.Helper()
	ctx := context.Background()
	const name = "testchannel"
	if _, err := svc.RegisterChannel(ctx, name); err != nil {
		t.Fatalf("register channel: %v", err)
	}
	for _, c := range []struct{ name, tag string }{
		{"Ravens", "RVN"},
		{"Wolves", "WLF"},
	} {
		if _, err := svc.CreateClan(ctx, name, c.name, c.tag, ""); err != nil {
			t.Fatalf("create clan %s: %v", c.name, err)
		}
	}
	return name
}

func TestParseEndDate(t *testing.T) {
	got, err := ParseEndDate("24/12/2026")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, bad := range []string{"2026-12-24", "24/13/2026", "tomorrow", ""} {
		if _, err := ParseEndDate(bad); err != ErrInvalidDate {
			t.Errorf("ParseEndDate(%q): got %v, want ErrInvalidDate", bad, err)
		}
	}
}

func TestCheckinAwardTiers(t *testing.T) {
	svc := New(nil, testTuning())

	tests := []struct {
		name       string
		first      bool
		sinceStart time.Duration
		wantPoints int
		wantEarly  bool
	}{
		{"first of session", true, 0, 300, false},
		{"first beats early", true, time.Minute, 300, false},
		{"early bird", false, 10 * time.Minute, 200, true},
		{"early window edge", false, 30 * time.Minute, 200, true},
		{"past the window", false, 31 * time.Minute, 100, false},
		{"late", false, 3 * time.Hour, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, early := svc.checkinAward(tt.first, tt.sinceStart)
			if points != tt.wantPoints || early != tt.wantEarly {
				t.Errorf("got (%d, %v), want (%d, %v)", points, early, tt.wantPoints, tt.wantEarly)
			}
		})
	}
}

func TestSubTierPoints(t *testing.T) {
	tuning := testTuning()
	if got := tuning.SubTierPoints(1000); got != 500 {
		t.Errorf("tier 1000: got %d, want 500", got)
	}
	if got := tuning.SubTierPoints(2000); got != 1000 {
		t.Errorf("tier 2000: got %d, want 1000", got)
	}
	if got := tuning.SubTierPoints(3000); got != 2500 {
		t.Errorf("tier 3000: got %d, want 2500", got)
	}
	// unknown tiers score as tier 1
	if got := tuning.SubTierPoints(0); got != 500 {
		t.Errorf("tier 0: got %d, want 500", got)
	}
}
