package game

import (
	"context"
	"testing"
	"time"
)

func TestFollowerGiveawayFlow(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)
	for _, name := range []string{"entrant1", "entrant2"} {
		if _, _, err := svc.Enroll(ctx, channel, name); err != nil {
			t.Fatalf("enroll %s: %v", name, err)
		}
	}
	startLiveSession(t, svc, channel)
	if err := svc.AddGiveawayPrize(ctx, channel, "a shiny axe", 400); err != nil {
		t.Fatalf("add prize: %v", err)
	}

	end, err := svc.OpenFollowerGiveaway(ctx, channel, "new_follower")
	if err != nil {
		t.Fatalf("open giveaway: %v", err)
	}
	if got := end.Sub(clk.Now()); got != 90*time.Second {
		t.Errorf("window: got %v, want 90s", got)
	}
	if _, err := svc.OpenFollowerGiveaway(ctx, channel, "other_follower"); err != ErrGiveawayOpen {
		t.Errorf("double open: got %v, want ErrGiveawayOpen", err)
	}

	if err := svc.EnterGiveaway(ctx, channel, "entrant1"); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := svc.EnterGiveaway(ctx, channel, "entrant1"); err != ErrAlreadyEntered {
		t.Errorf("double entry: got %v, want ErrAlreadyEntered", err)
	}
	if err := svc.EnterGiveaway(ctx, channel, "entrant2"); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if err := svc.EnterGiveaway(ctx, channel, "stranger"); err != ErrNotEnrolled {
		t.Errorf("unenrolled entry: got %v, want ErrNotEnrolled", err)
	}

	// nothing resolves before the window closes
	outcomes, err := svc.ResolveExpiredGiveaways(ctx)
	if err != nil {
		t.Fatalf("resolve early: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("resolved early: %+v", outcomes)
	}

	clk.Advance(2 * time.Minute)
	outcomes, err = svc.ResolveExpiredGiveaways(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("outcomes: got %d, want 1", len(outcomes))
	}
	o := outcomes[0]
	if o.Expired {
		t.Fatal("giveaway with entrants expired")
	}
	if o.Winner != "entrant1" && o.Winner != "entrant2" {
		t.Errorf("winner: got %q", o.Winner)
	}
	if o.Prize != "a shiny axe" || o.Points != 400 {
		t.Errorf("prize: got %q (%d points)", o.Prize, o.Points)
	}

	// the winner's points landed
	status, err := svc.Status(ctx, channel, o.Winner)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Points != 400 {
		t.Errorf("winner points: got %d, want 400", status.Points)
	}

	// a resolved giveaway doesn't resolve twice
	outcomes, err = svc.ResolveExpiredGiveaways(ctx)
	if err != nil || len(outcomes) != 0 {
		t.Errorf("second resolve: got %+v, %v", outcomes, err)
	}

	// entering after close fails
	if err := svc.EnterGiveaway(ctx, channel, "entrant2"); err != ErrNoOpenGiveaway {
		t.Errorf("late entry: got %v, want ErrNoOpenGiveaway", err)
	}
}

func TestGiveawayRefollowReplaces(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, err := svc.OpenFollowerGiveaway(ctx, channel, "flaky_follower"); err != nil {
		t.Fatalf("open giveaway: %v", err)
	}
	// the same follower unfollowing and refollowing restarts the window
	clk.Advance(time.Minute)
	end, err := svc.OpenFollowerGiveaway(ctx, channel, "flaky_follower")
	if err != nil {
		t.Fatalf("reopen giveaway: %v", err)
	}
	if got := end.Sub(clk.Now()); got != 90*time.Second {
		t.Errorf("replacement window: got %v, want 90s", got)
	}
	n, err := svc.Store().CountOpenGiveaways(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("open giveaways: got %d, want 1", n)
	}
	// a different follower still waits for the open window
	if _, err := svc.OpenFollowerGiveaway(ctx, channel, "someone_else"); err != ErrGiveawayOpen {
		t.Errorf("second follower: got %v, want ErrGiveawayOpen", err)
	}
}

func TestGiveawayWithNoEntrantsExpires(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, svc)

	if _, err := svc.OpenFollowerGiveaway(ctx, channel, "quiet_follower"); err != nil {
		t.Fatalf("open giveaway: %v", err)
	}
	clk.Advance(5 * time.Minute)

	outcomes, err := svc.ResolveExpiredGiveaways(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].Expired {
		t.Fatalf("outcomes: got %+v", outcomes)
	}

	n, err := svc.Store().CountOpenGiveaways(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("open giveaways: got %d, want 0", n)
	}
}
