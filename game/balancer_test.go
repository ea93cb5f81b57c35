package game

import (
	"math/rand"
	"testing"

	"github.com/vanderwood/midgard/store"
)

func counts(ns ...int) []store.ClanMemberCount {
	out := make([]store.ClanMemberCount, len(ns))
	for i, n := range ns {
		out[i] = store.ClanMemberCount{
			Clan:  store.Clan{ID: int64(i + 1)},
			Count: n,
		}
	}
	return out
}

func TestPickClanLeastPopulated(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	clan, err := PickClan(counts(5, 2, 7), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clan.ID != 2 {
		t.Errorf("got clan %d, want 2", clan.ID)
	}
}

func TestPickClanNoClans(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	if _, err := PickClan(nil, r); err != ErrNoClans {
		t.Errorf("got %v, want ErrNoClans", err)
	}
}

func TestPickClanTieBreaksRandomly(t *testing.T) {
	// With clans 1 and 3 tied at the minimum, a run of draws must hit both
	// and never pick the fuller clan 2.
	r := rand.New(rand.NewSource(42))
	seen := map[int64]int{}
	for i := 0; i < 200; i++ {
		clan, err := PickClan(counts(3, 9, 3), r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[clan.ID]++
	}
	if seen[2] != 0 {
		t.Errorf("picked the fuller clan %d times", seen[2])
	}
	if seen[1] == 0 || seen[3] == 0 {
		t.Errorf("tie break never hit one side: %v", seen)
	}
}
