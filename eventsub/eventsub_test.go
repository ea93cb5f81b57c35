package eventsub

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vanderwood/midgard/game"
)

type fakeGame struct {
	subs        []string
	gifts       []string
	redemptions []string
	follows     []string
}

func (f *fakeGame) RecordSubscription(_ context.Context, channel, user string, tier, months int) (*game.AwardResult, error) {
	f.subs = append(f.subs, channel+"/"+user)
	return &game.AwardResult{Points: tier}, nil
}

func (f *fakeGame) RecordGiftedSubs(_ context.Context, channel, gifter string, tier, count int, anonymous bool) (*game.AwardResult, error) {
	if anonymous {
		return nil, nil
	}
	f.gifts = append(f.gifts, gifter)
	return &game.AwardResult{Points: tier * count / 2}, nil
}

func (f *fakeGame) RecordRedemption(_ context.Context, channel, user, rewardID string, cost int) (*game.AwardResult, error) {
	f.redemptions = append(f.redemptions, rewardID)
	return &game.AwardResult{Points: cost / 2}, nil
}

func (f *fakeGame) OpenFollowerGiveaway(_ context.Context, channel, follower string) (time.Time, error) {
	f.follows = append(f.follows, follower)
	return time.Now(), nil
}

type fakeAlerter struct {
	clips, modlogs, alerts []string
}

func (f *fakeAlerter) Clip(_ context.Context, channel, user, url string) {
	f.clips = append(f.clips, url)
}

func (f *fakeAlerter) ModLog(_ context.Context, channel, user, message string) {
	f.modlogs = append(f.modlogs, message)
}

func (f *fakeAlerter) Alert(_ context.Context, message string) {
	f.alerts = append(f.alerts, message)
}

const testSecret = "s3cret"

func signedRequest(t *testing.T, msgType, msgID, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/eventsub/callback", strings.NewReader(body))
	ts := time.Now().UTC().Format(time.RFC3339)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(msgID + ts + body))
	req.Header.Set("Twitch-Eventsub-Message-Id", msgID)
	req.Header.Set("Twitch-Eventsub-Message-Timestamp", ts)
	req.Header.Set("Twitch-Eventsub-Message-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("Twitch-Eventsub-Message-Type", msgType)
	return req
}

func TestChallengeEcho(t *testing.T) {
	h := NewHandler(testSecret, &fakeGame{}, nil, nil)
	body := `{"challenge":"pong-me","subscription":{"type":"channel.subscribe"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "webhook_callback_verification", "id-1", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	got, _ := io.ReadAll(rec.Body)
	if string(got) != "pong-me" {
		t.Errorf("challenge echo: got %q", got)
	}
}

func TestRejectsBadSignature(t *testing.T) {
	h := NewHandler(testSecret, &fakeGame{}, nil, nil)
	body := `{"subscription":{"type":"channel.subscribe"},"event":{}}`
	req := signedRequest(t, "notification", "id-1", body)
	req.Header.Set("Twitch-Eventsub-Message-Signature", "sha256=deadbeef")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}

func TestDispatchesSubscription(t *testing.T) {
	fake := &fakeGame{}
	h := NewHandler(testSecret, fake, nil, nil)
	body := `{"subscription":{"type":"channel.subscribe"},"event":{"broadcaster_user_login":"somechannel","user_login":"newsub","tier":"2000","is_gift":false}}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "notification", "id-1", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if len(fake.subs) != 1 || fake.subs[0] != "somechannel/newsub" {
		t.Errorf("subs: got %v", fake.subs)
	}
}

func TestGiftSubscribeEventIgnored(t *testing.T) {
	fake := &fakeGame{}
	h := NewHandler(testSecret, fake, nil, nil)
	body := `{"subscription":{"type":"channel.subscribe"},"event":{"broadcaster_user_login":"somechannel","user_login":"lucky","tier":"1000","is_gift":true}}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "notification", "id-1", body))
	if len(fake.subs) != 0 {
		t.Errorf("gift recipient scored as a sub: %v", fake.subs)
	}
}

func TestDuplicateDeliveryIgnored(t *testing.T) {
	fake := &fakeGame{}
	h := NewHandler(testSecret, fake, nil, nil)
	body := `{"subscription":{"type":"channel.follow"},"event":{"broadcaster_user_login":"somechannel","user_login":"fan"}}`

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, signedRequest(t, "notification", "same-id", body))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d", rec.Code)
		}
	}
	if len(fake.follows) != 1 {
		t.Errorf("follows: got %d, want 1", len(fake.follows))
	}
}

func TestFollowCrossPostsAlert(t *testing.T) {
	fake := &fakeGame{}
	alerts := &fakeAlerter{}
	h := NewHandler(testSecret, fake, nil, alerts)
	body := `{"subscription":{"type":"channel.follow"},"event":{"broadcaster_user_login":"somechannel","user_login":"fan"}}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "notification", "id-1", body))
	if len(fake.follows) != 1 {
		t.Fatalf("follows: got %v", fake.follows)
	}
	if len(alerts.alerts) != 1 || !strings.Contains(alerts.alerts[0], "fan") {
		t.Errorf("alert cross-post: got %v", alerts.alerts)
	}
}

func TestDispatchesRedemption(t *testing.T) {
	fake := &fakeGame{}
	h := NewHandler(testSecret, fake, nil, nil)
	body := `{"subscription":{"type":"channel.channel_points_custom_reward_redemption.add"},"event":{"broadcaster_user_login":"somechannel","user_login":"redeemer","reward":{"id":"r-1","title":"Hydrate","cost":500}}}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, "notification", "id-1", body))
	if len(fake.redemptions) != 1 || fake.redemptions[0] != "r-1" {
		t.Errorf("redemptions: got %v", fake.redemptions)
	}
}
