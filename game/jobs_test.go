package game

import (
	"context"
	"strings"
	"testing"
)

type recordingNotifier struct {
	msgs []string
}

func (n *recordingNotifier) Announce(_ context.Context, channel, message string) {
	n.msgs = append(n.msgs, channel+": "+message)
}

func TestAnnounceOutcome(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}

	// expired giveaways are announced too, not just logged
	announceOutcome(ctx, n, GiveawayOutcome{Channel: "c", Follower: "ghost", Expired: true})
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0], "ghost") {
		t.Fatalf("expired announcement: got %v", n.msgs)
	}

	announceOutcome(ctx, n, GiveawayOutcome{Channel: "c", Follower: "fan", Winner: "hero", Prize: "an axe", Points: 400})
	if len(n.msgs) != 2 {
		t.Fatalf("win announcement missing: got %v", n.msgs)
	}
	for _, want := range []string{"hero", "an axe", "400"} {
		if !strings.Contains(n.msgs[1], want) {
			t.Errorf("win announcement %q missing %q", n.msgs[1], want)
		}
	}

	// a nil notifier stays quiet
	announceOutcome(ctx, nil, GiveawayOutcome{Channel: "c", Follower: "x", Expired: true})
}
