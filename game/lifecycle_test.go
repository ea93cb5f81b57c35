package game

import (
	"context"
	"testing"
	"time"
)

func TestSeasonLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	season, err := svc.StartSeason(ctx, channel, "Season of the Wolf")
	if err != nil {
		t.Fatalf("start season: %v", err)
	}
	if season.Name != "Season of the Wolf" {
		t.Errorf("season name: got %q", season.Name)
	}

	if _, err := svc.StartSeason(ctx, channel, "Another"); err != ErrSeasonActive {
		t.Errorf("double start: got %v, want ErrSeasonActive", err)
	}

	if _, err := svc.StartSession(ctx, channel); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := svc.StartSession(ctx, channel); err != ErrSessionActive {
		t.Errorf("double session start: got %v, want ErrSessionActive", err)
	}

	// ending the season is refused while a session is live
	if _, err := svc.EndSeason(ctx, channel, "24/12/2026"); err != ErrSessionInProgress {
		t.Errorf("end season mid-session: got %v, want ErrSessionInProgress", err)
	}

	if err := svc.EndSession(ctx, channel); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if err := svc.EndSession(ctx, channel); err != ErrNoActiveSession {
		t.Errorf("double session end: got %v, want ErrNoActiveSession", err)
	}

	if _, err := svc.EndSeason(ctx, channel, "not a date"); err != ErrInvalidDate {
		t.Errorf("bad end date: got %v, want ErrInvalidDate", err)
	}
	if _, err := svc.EndSeason(ctx, channel, "24/12/2026"); err != nil {
		t.Fatalf("end season: %v", err)
	}
	if _, err := svc.EndSeason(ctx, channel, "24/12/2026"); err != ErrNoActiveSeason {
		t.Errorf("double season end: got %v, want ErrNoActiveSeason", err)
	}
}

func TestSetAdvertisedEndDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, err := svc.SetAdvertisedEndDate(ctx, channel, "24/12/2026"); err != ErrNoActiveSeason {
		t.Errorf("no season: got %v, want ErrNoActiveSeason", err)
	}
	if _, err := svc.StartSeason(ctx, channel, "S1"); err != nil {
		t.Fatalf("start season: %v", err)
	}
	if _, err := svc.SetAdvertisedEndDate(ctx, channel, "soon"); err != ErrInvalidDate {
		t.Errorf("bad date: got %v, want ErrInvalidDate", err)
	}
	season, err := svc.SetAdvertisedEndDate(ctx, channel, "24/12/2026")
	if err != nil {
		t.Fatalf("set date: %v", err)
	}
	if !season.InfoEndDate.Valid {
		t.Fatal("info end date not set")
	}

	// the season stays open, only the advertised date changed
	got, err := svc.SeasonInfo(ctx, channel)
	if err != nil {
		t.Fatalf("season info: %v", err)
	}
	if !got.InfoEndDate.Valid || got.InfoEndDate.Time.Day() != 24 {
		t.Errorf("advertised end: got %+v", got.InfoEndDate)
	}
}

func TestEndSeasonWithoutDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, err := svc.StartSeason(ctx, channel, "S1"); err != nil {
		t.Fatalf("start season: %v", err)
	}
	if _, err := svc.SetAdvertisedEndDate(ctx, channel, "24/12/2026"); err != nil {
		t.Fatalf("set date: %v", err)
	}
	if _, err := svc.EndSeason(ctx, channel, ""); err != nil {
		t.Fatalf("bare end season: %v", err)
	}

	// the advertised date survives a close with no date argument
	season, err := svc.Store().LastEndedSeason(ctx, mustChannelID(t, svc, channel))
	if err != nil {
		t.Fatalf("ended season: %v", err)
	}
	if !season.EndDate.Valid {
		t.Error("season not closed")
	}
	if !season.InfoEndDate.Valid || season.InfoEndDate.Time.Day() != 24 {
		t.Errorf("advertised end: got %+v", season.InfoEndDate)
	}
}

func TestSeasonEndClosesScoringWindows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, err := svc.StartSeason(ctx, channel, "S1"); err != nil {
		t.Fatalf("start season: %v", err)
	}
	if err := svc.StartRaid(ctx, channel); err != nil {
		t.Fatalf("start raid: %v", err)
	}
	if err := svc.StartSpoils(ctx, channel, 100); err != nil {
		t.Fatalf("start spoils: %v", err)
	}

	// raid and spoils windows don't block the close
	if _, err := svc.EndSeason(ctx, channel, ""); err != nil {
		t.Fatalf("end season: %v", err)
	}
	if _, err := svc.RaidCheckIn(ctx, channel, "viewer"); err != ErrNoActiveSeason {
		t.Errorf("raid after season end: got %v, want ErrNoActiveSeason", err)
	}
	if _, err := svc.ClaimSpoils(ctx, channel, "viewer"); err != ErrNoActiveSeason {
		t.Errorf("spoils after season end: got %v, want ErrNoActiveSeason", err)
	}

	// the old windows were swept, not left to pay into the next season
	if _, err := svc.StartSeason(ctx, channel, "S2"); err != nil {
		t.Fatalf("start second season: %v", err)
	}
	if _, err := svc.RaidCheckIn(ctx, channel, "viewer"); err != ErrNoActiveSession {
		t.Errorf("stale raid window: got %v, want ErrNoActiveSession", err)
	}
	if _, err := svc.ClaimSpoils(ctx, channel, "viewer"); err != ErrNoActiveSpoils {
		t.Errorf("stale spoils window: got %v, want ErrNoActiveSpoils", err)
	}
}

func TestSessionRequiresSeason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, err := svc.StartSession(ctx, channel); err != ErrNoActiveSeason {
		t.Errorf("got %v, want ErrNoActiveSeason", err)
	}
}

func TestUnregisteredChannel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.StartSeason(ctx, "nobody", "S1"); err != ErrChannelNotRegistered {
		t.Errorf("start season: got %v, want ErrChannelNotRegistered", err)
	}
	if _, err := svc.CheckIn(ctx, "nobody", "viewer"); err != ErrChannelNotRegistered {
		t.Errorf("check in: got %v, want ErrChannelNotRegistered", err)
	}
}

func TestCreateClanValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, err := svc.CreateClan(ctx, channel, "Bears", "BEARS", ""); err != ErrTagTooLong {
		t.Errorf("five char tag: got %v, want ErrTagTooLong", err)
	}
	if _, err := svc.CreateClan(ctx, channel, "Ravens", "XYZ", ""); err != ErrClanNameTaken {
		t.Errorf("dup name: got %v, want ErrClanNameTaken", err)
	}
	if _, err := svc.CreateClan(ctx, channel, "Bears", "RVN", ""); err != ErrClanTagTaken {
		t.Errorf("dup tag: got %v, want ErrClanTagTaken", err)
	}
	// four characters is the limit
	if _, err := svc.CreateClan(ctx, channel, "Bears", "BEAR", ""); err != nil {
		t.Errorf("create clan: %v", err)
	}
}

func TestMovePlayerBlockedDuringSeason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, _, err := svc.Enroll(ctx, channel, "viking"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := svc.StartSeason(ctx, channel, "S1"); err != nil {
		t.Fatalf("start season: %v", err)
	}
	if _, err := svc.MovePlayer(ctx, channel, "viking", "Wolves"); err != ErrSeasonActive {
		t.Errorf("move during season: got %v, want ErrSeasonActive", err)
	}
	if _, err := svc.EndSeason(ctx, channel, "01/06/2026"); err != nil {
		t.Fatalf("end season: %v", err)
	}
	clan, err := svc.MovePlayer(ctx, channel, "viking", "Wolves")
	if err != nil {
		t.Fatalf("move after season: %v", err)
	}
	if clan.Name != "Wolves" {
		t.Errorf("moved to %q, want Wolves", clan.Name)
	}
}

func TestClanSpoilsLifecycle(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, err := svc.StartSeason(ctx, channel, "S1"); err != nil {
		t.Fatalf("start season: %v", err)
	}
	if _, err := svc.StartSession(ctx, channel); err != nil {
		t.Fatalf("start session: %v", err)
	}

	clan, err := svc.StartClanSpoils(ctx, channel, "Ravens", 150)
	if err != nil {
		t.Fatalf("start clan spoils: %v", err)
	}
	if clan.Name != "Ravens" {
		t.Errorf("clan: got %q", clan.Name)
	}
	if _, err := svc.StartClanSpoils(ctx, channel, "RVN", 150); err != ErrSpoilsActive {
		t.Errorf("double start: got %v, want ErrSpoilsActive", err)
	}
	// a different clan can still have its own window
	if _, err := svc.StartClanSpoils(ctx, channel, "Wolves", 150); err != nil {
		t.Errorf("second clan window: %v", err)
	}

	// ending the session sweeps open clan windows
	clk.Advance(time.Hour)
	if err := svc.EndSession(ctx, channel); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if _, err := svc.EndClanSpoils(ctx, channel, "Ravens"); err != ErrNoActiveSpoils {
		t.Errorf("window survived session end: got %v, want ErrNoActiveSpoils", err)
	}
}
