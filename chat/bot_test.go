package chat

import (
	"testing"

	"github.com/vanderwood/midgard/game"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in       string
		wantCmd  string
		wantArgs []string
		wantOK   bool
	}{
		{"?checkin", "checkin", nil, true},
		{"?CHECKIN", "checkin", nil, true},
		{"  ?addpoints @Viker 50  ", "addpoints", []string{"@Viker", "50"}, true},
		{"?startseason Season of the Wolf", "startseason", []string{"Season", "of", "the", "Wolf"}, true},
		{"checkin", "", nil, false},
		{"?", "", nil, false},
		{"hello there", "", nil, false},
		{"", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := parseCommand(tt.in)
		if ok != tt.wantOK || cmd != tt.wantCmd {
			t.Errorf("parseCommand(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tt.in, cmd, args, ok, tt.wantCmd, tt.wantArgs, tt.wantOK)
			continue
		}
		if len(args) != len(tt.wantArgs) {
			t.Errorf("parseCommand(%q) args = %v, want %v", tt.in, args, tt.wantArgs)
			continue
		}
		for i := range args {
			if args[i] != tt.wantArgs[i] {
				t.Errorf("parseCommand(%q) args = %v, want %v", tt.in, args, tt.wantArgs)
				break
			}
		}
	}
}

func TestClipLink(t *testing.T) {
	tests := []struct {
		in      string
		wantURL string
		wantOK  bool
	}{
		{"check this out https://clips.twitch.tv/AbcDef123", "https://clips.twitch.tv/AbcDef123", true},
		{"https://www.twitch.tv/somestreamer/clip/AbcDef123", "https://www.twitch.tv/somestreamer/clip/AbcDef123", true},
		{"http://twitch.tv/somestreamer/clip/AbcDef123 lol", "http://twitch.tv/somestreamer/clip/AbcDef123", true},
		{"https://www.twitch.tv/somestreamer", "", false},
		{"clips are great", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		url, ok := clipLink(tt.in)
		if url != tt.wantURL || ok != tt.wantOK {
			t.Errorf("clipLink(%q) = (%q, %v), want (%q, %v)", tt.in, url, ok, tt.wantURL, tt.wantOK)
		}
	}
}

func TestErrorReplySilentForUnregisteredChannel(t *testing.T) {
	if got := errorReply(game.ErrChannelNotRegistered); got != "" {
		t.Errorf("got %q, want silence", got)
	}
	if got := errorReply(game.ErrAlreadyCheckedIn); got == "" {
		t.Error("expected a reply for duplicate check-in")
	}
}
