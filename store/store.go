// Package store is the data access layer. All game state lives in Postgres and
// every invariant that matters under concurrency (one active season per channel,
// one check-in per player per session) is enforced by the schema, not by Go code.
package store

import (
	"database/sql"
	"time"
)

type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

type Channel struct {
	ID              int64
	Name            string
	TwitchUserID    sql.NullString
	DiscordServerID sql.NullString
}

type Clan struct {
	ID        int64
	ChannelID int64
	Name      string
	Tag       string
	Emoji     sql.NullString
}

type Player struct {
	ID        int64
	ChannelID int64
	Name      string
	Nickname  sql.NullString
	ClanID    sql.NullInt64
	Enabled   bool
}

type Season struct {
	ID          int64
	ChannelID   int64
	Name        string
	StartDate   time.Time
	EndDate     sql.NullTime
	InfoEndDate sql.NullTime
}

type Session struct {
	ID        int64
	ChannelID int64
	SeasonID  int64
	StartTime time.Time
	EndTime   sql.NullTime
}

// RewardSession is a spoils or clan-spoils window. ClanID is set only for
// clan spoils.
type RewardSession struct {
	ID           int64
	ChannelID    int64
	SeasonID     int64
	ClanID       sql.NullInt64
	PointsReward int
	StartTime    time.Time
	EndTime      sql.NullTime
}

// SentrySession is a short self-expiring check-in window inside a live session.
// EndTime is always set at creation; the window is over once now >= EndTime.
type SentrySession struct {
	ID        int64
	ChannelID int64
	SeasonID  int64
	SessionID int64
	StartTime time.Time
	EndTime   time.Time
}

type Giveaway struct {
	ID        int64
	ChannelID int64
	Follower  string
	StartTime time.Time
	EndTime   time.Time
	WinnerID  sql.NullInt64
}

type GiveawayPrize struct {
	ID       int64
	Message  string
	VPReward int
}

type RewardLevel struct {
	Level  int
	Reward string
}
