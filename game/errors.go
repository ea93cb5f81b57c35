package game

import "errors"

// Sentinel errors returned by Service operations. Transports decide how each
// surfaces: chat replies with a short message, unregistered channels stay
// silent.
var (
	ErrChannelNotRegistered = errors.New("channel is not registered")
	ErrNoActiveSeason       = errors.New("no active season")
	ErrSeasonActive         = errors.New("a season is already active")
	ErrNoActiveSession      = errors.New("no active session")
	ErrSessionActive        = errors.New("a session is already active")
	ErrSessionInProgress    = errors.New("a session is in progress")
	ErrNoActiveSentry       = errors.New("no sentry window is open")
	ErrSentryActive         = errors.New("a sentry window is already open")
	ErrNoActiveSpoils       = errors.New("no spoils session is active")
	ErrSpoilsActive         = errors.New("a spoils session is already active")
	ErrAlreadyCheckedIn     = errors.New("already checked in")
	ErrAlreadyClaimed       = errors.New("already claimed")
	ErrAlreadyEntered       = errors.New("already entered")
	ErrNotEnrolled          = errors.New("player is not enrolled")
	ErrPlayerDisabled       = errors.New("player is disabled")
	ErrNoClan               = errors.New("player has no clan")
	ErrNoClans              = errors.New("no clans exist")
	ErrClanNotFound         = errors.New("clan not found")
	ErrClanNameTaken        = errors.New("clan name is taken")
	ErrClanTagTaken         = errors.New("clan tag is taken")
	ErrTagTooLong           = errors.New("clan tag is too long")
	ErrInvalidDate          = errors.New("invalid date, expected DD/MM/YYYY")
	ErrNoOpenGiveaway       = errors.New("no giveaway is open")
	ErrGiveawayOpen         = errors.New("a giveaway is already open")
)
