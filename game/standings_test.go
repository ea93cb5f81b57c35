package game

import (
	"context"
	"testing"
)

func TestStandingsAndLeaderboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)
	startLiveSession(t, svc, channel)

	chID := mustChannelID(t, svc, channel)
	ravens, err := svc.Store().GetClanByName(ctx, chID, "Ravens")
	if err != nil {
		t.Fatal(err)
	}
	wolves, err := svc.Store().GetClanByName(ctx, chID, "Wolves")
	if err != nil {
		t.Fatal(err)
	}

	// two ravens, one wolf, with known scores
	players := []struct {
		name   string
		clanID int64
		points int
	}{
		{"r1", ravens.ID, 300},
		{"r2", ravens.ID, 100},
		{"w1", wolves.ID, 250},
	}
	for _, p := range players {
		if _, _, err := svc.Enroll(ctx, channel, p.name); err != nil {
			t.Fatalf("enroll %s: %v", p.name, err)
		}
		pl, err := svc.Store().GetPlayerByName(ctx, chID, p.name)
		if err != nil {
			t.Fatal(err)
		}
		if err := svc.Store().SetPlayerClan(ctx, pl.ID, p.clanID); err != nil {
			t.Fatal(err)
		}
		if err := svc.AwardPoints(ctx, channel, p.name, p.points); err != nil {
			t.Fatalf("award %s: %v", p.name, err)
		}
	}

	_, standings, err := svc.Standings(ctx, channel)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 2 {
		t.Fatalf("standings rows: got %d, want 2", len(standings))
	}
	if standings[0].Clan.Name != "Ravens" || standings[0].Points != 400 {
		t.Errorf("leader: got %s with %d", standings[0].Clan.Name, standings[0].Points)
	}
	if standings[1].Clan.Name != "Wolves" || standings[1].Points != 250 {
		t.Errorf("runner up: got %s with %d", standings[1].Clan.Name, standings[1].Points)
	}

	_, top, err := svc.Leaderboard(ctx, channel, 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 2 || top[0].Name != "r1" || top[1].Name != "w1" {
		t.Errorf("leaderboard: got %+v", top)
	}

	status, err := svc.Status(ctx, channel, "w1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Rank != 2 || status.Points != 250 {
		t.Errorf("w1 status: rank %d points %d", status.Rank, status.Points)
	}
	if status.ClanRank != 1 {
		t.Errorf("w1 clan rank: got %d, want 1", status.ClanRank)
	}
	if status.Clan == nil || status.Clan.Name != "Wolves" {
		t.Errorf("w1 clan: %+v", status.Clan)
	}

	// r2 is 3rd overall but 2nd among the ravens
	status, err = svc.Status(ctx, channel, "r2")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Rank != 3 || status.ClanRank != 2 {
		t.Errorf("r2 ranks: got overall %d clan %d, want 3 and 2", status.Rank, status.ClanRank)
	}

	champions, err := svc.ClanChampions(ctx, channel)
	if err != nil {
		t.Fatalf("clan champions: %v", err)
	}
	if len(champions) != 2 {
		t.Fatalf("champions: got %d, want 2", len(champions))
	}
	for _, c := range champions {
		switch c.Clan.Name {
		case "Ravens":
			if c.Player != "r1" || c.Points != 300 {
				t.Errorf("ravens champion: got %s (%d)", c.Player, c.Points)
			}
		case "Wolves":
			if c.Player != "w1" || c.Points != 250 {
				t.Errorf("wolves champion: got %s (%d)", c.Player, c.Points)
			}
		default:
			t.Errorf("unexpected clan %q", c.Clan.Name)
		}
	}
}

func TestPlayerReward(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)
	if _, _, err := svc.Enroll(ctx, channel, "grinder"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	startLiveSession(t, svc, channel)
	for _, l := range []struct {
		level  int
		reward string
	}{
		{100, "a sticker"},
		{500, "a mug"},
		{2000, "a hoodie"},
	} {
		if err := svc.SetRewardLevel(ctx, channel, l.level, l.reward); err != nil {
			t.Fatalf("set reward: %v", err)
		}
	}

	reward, points, err := svc.PlayerReward(ctx, channel, "grinder")
	if err != nil {
		t.Fatalf("player reward: %v", err)
	}
	if reward != nil || points != 0 {
		t.Errorf("no points yet: got %+v (%d)", reward, points)
	}

	if err := svc.AwardPoints(ctx, channel, "grinder", 600); err != nil {
		t.Fatalf("award: %v", err)
	}
	reward, points, err = svc.PlayerReward(ctx, channel, "grinder")
	if err != nil {
		t.Fatalf("player reward: %v", err)
	}
	if points != 600 || reward == nil || reward.Level != 500 {
		t.Errorf("got %+v (%d), want level 500 at 600 points", reward, points)
	}
}

func TestLifetimePointsSpanSeasons(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)
	if _, _, err := svc.Enroll(ctx, channel, "veteran"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if _, err := svc.StartSeason(ctx, channel, "S1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AwardPoints(ctx, channel, "veteran", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EndSeason(ctx, channel, "01/06/2026"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StartSeason(ctx, channel, "S2"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AwardPoints(ctx, channel, "veteran", 50); err != nil {
		t.Fatal(err)
	}

	status, err := svc.Status(ctx, channel, "veteran")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Points != 50 {
		t.Errorf("season points: got %d, want 50", status.Points)
	}
	if status.Lifetime != 150 {
		t.Errorf("lifetime points: got %d, want 150", status.Lifetime)
	}
}

func TestMVPUsesLastEndedSeason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)
	if _, _, err := svc.Enroll(ctx, channel, "champ"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if _, _, err := svc.MVP(ctx, channel); err != ErrNoActiveSeason {
		t.Errorf("no ended season: got %v, want ErrNoActiveSeason", err)
	}

	if _, err := svc.StartSeason(ctx, channel, "S1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AwardPoints(ctx, channel, "champ", 999); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.EndSeason(ctx, channel, "01/06/2026"); err != nil {
		t.Fatal(err)
	}

	season, mvp, err := svc.MVP(ctx, channel)
	if err != nil {
		t.Fatalf("mvp: %v", err)
	}
	if season.Name != "S1" {
		t.Errorf("season: got %q", season.Name)
	}
	if mvp == nil || mvp.Name != "champ" || mvp.Points != 999 {
		t.Errorf("mvp: got %+v", mvp)
	}
}
