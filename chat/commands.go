package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vanderwood/midgard/game"
)

// dispatch routes one parsed command and returns the chat reply. An empty
// reply means stay silent.
func (b *Bot) dispatch(ctx context.Context, channel, user string, r userRoles, cmd string, args []string) string {
	switch cmd {
	// viewer commands
	case "enroll", "join":
		return b.reply(b.cmdEnroll(ctx, channel, user))
	case "checkin", "ci":
		return b.reply(b.cmdCheckin(ctx, channel, user))
	case "raid":
		return b.reply(b.cmdRaid(ctx, channel, user))
	case "sentry":
		return b.reply(b.cmdSentry(ctx, channel, user))
	case "spoils":
		return b.reply(b.cmdSpoils(ctx, channel, user))
	case "clanspoils":
		return b.reply(b.cmdClanSpoils(ctx, channel, user))
	case "giveaway":
		return b.reply(b.cmdGiveaway(ctx, channel, user))
	case "status", "points":
		return b.reply(b.cmdStatus(ctx, channel, user))
	case "standings":
		return b.reply(b.cmdStandings(ctx, channel))
	case "leaderboard", "top":
		return b.reply(b.cmdLeaderboard(ctx, channel))
	case "mvp":
		return b.reply(b.cmdMVP(ctx, channel))
	case "clanchampions":
		return b.reply(b.cmdClanChampions(ctx, channel))
	case "dates":
		return b.reply(b.cmdDates(ctx, channel))
	case "myrewards":
		return b.reply(b.cmdMyRewards(ctx, channel, user))
	case "clans":
		return b.reply(b.cmdClans(ctx, channel))
	case "roster":
		return b.reply(b.cmdRoster(ctx, channel, args))
	case "rewards":
		return b.reply(b.cmdRewards(ctx, channel))
	case "gifted":
		return b.reply(b.cmdGifted(ctx, channel))
	case "watchtime":
		return b.reply(b.cmdWatchtime(ctx, channel))
	case "nickname":
		return b.reply(b.cmdNickname(ctx, channel, user, args))
	case "commands", "help":
		return "Commands: ?enroll ?checkin ?raid ?sentry ?spoils ?clanspoils ?giveaway ?status ?standings ?leaderboard ?mvp ?clanchampions ?dates ?clans ?roster ?rewards ?myrewards ?gifted ?watchtime ?nickname"
	}

	if r.mod {
		switch cmd {
		case "startsession":
			_, err := b.svc.StartSession(ctx, channel)
			return b.replyErr(err, "Session started, check in with ?checkin!")
		case "endsession":
			return b.replyErr(b.svc.EndSession(ctx, channel), "Session ended. Well fought!")
		case "startraid":
			return b.replyErr(b.svc.StartRaid(ctx, channel), "A raid is underway! Type ?raid to join the warband.")
		case "endraid":
			return b.replyErr(b.svc.EndRaid(ctx, channel), "The raid is over.")
		case "startspoils":
			return b.reply(b.cmdStartSpoils(ctx, channel, args))
		case "endspoils":
			return b.replyErr(b.svc.EndSpoils(ctx, channel), "The spoils are gone.")
		case "startclanspoils":
			return b.reply(b.cmdStartClanSpoils(ctx, channel, args))
		case "endclanspoils":
			return b.reply(b.cmdEndClanSpoils(ctx, channel, args))
		case "addpoints":
			return b.reply(b.cmdAdjustPoints(ctx, channel, args, true))
		case "removepoints":
			return b.reply(b.cmdAdjustPoints(ctx, channel, args, false))
		case "moveplayer":
			return b.reply(b.cmdMovePlayer(ctx, channel, args))
		case "disableplayer":
			return b.reply(b.cmdTogglePlayer(ctx, channel, args, false))
		case "enableplayer":
			return b.reply(b.cmdTogglePlayer(ctx, channel, args, true))
		case "setdate":
			return b.reply(b.cmdSetDate(ctx, channel, args))
		case "setreward":
			return b.reply(b.cmdSetReward(ctx, channel, args))
		case "addprize":
			return b.reply(b.cmdAddPrize(ctx, channel, args))
		}
	}

	if r.broadcaster {
		switch cmd {
		case "startseason":
			return b.reply(b.cmdStartSeason(ctx, channel, args))
		case "endseason":
			return b.reply(b.cmdEndSeason(ctx, channel, args))
		case "createclan":
			return b.reply(b.cmdCreateClan(ctx, channel, args))
		}
	}

	return ""
}

func (b *Bot) cmdEnroll(ctx context.Context, channel, user string) (string, error) {
	p, clan, err := b.svc.Enroll(ctx, channel, user)
	if err != nil {
		return "", err
	}
	if clan == nil {
		return "you are enrolled.", nil
	}
	if p.ClanID.Valid {
		return fmt.Sprintf("welcome to the battle! You fight for %s [%s].", clan.Name, clan.Tag), nil
	}
	return "you are enrolled.", nil
}

func (b *Bot) cmdCheckin(ctx context.Context, channel, user string) (string, error) {
	res, err := b.svc.CheckIn(ctx, channel, user)
	if err != nil {
		return "", err
	}
	switch {
	case res.First:
		return fmt.Sprintf("first on the battlefield! +%d points.", res.Points), nil
	case res.Early:
		return fmt.Sprintf("early bird! +%d points.", res.Points), nil
	default:
		return fmt.Sprintf("checked in, +%d points.", res.Points), nil
	}
}

func (b *Bot) cmdRaid(ctx context.Context, channel, user string) (string, error) {
	res, err := b.svc.RaidCheckIn(ctx, channel, user)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("you joined the raid, +%d points!", res.Points), nil
}

func (b *Bot) cmdSentry(ctx context.Context, channel, user string) (string, error) {
	res, err := b.svc.SentryCheckIn(ctx, channel, user)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("the sentries saw you, +%d points.", res.Points), nil
}

func (b *Bot) cmdSpoils(ctx context.Context, channel, user string) (string, error) {
	res, err := b.svc.ClaimSpoils(ctx, channel, user)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("you claimed the spoils, +%d points!", res.Points), nil
}

func (b *Bot) cmdClanSpoils(ctx context.Context, channel, user string) (string, error) {
	res, err := b.svc.ClaimClanSpoils(ctx, channel, user)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("your clan's spoils are yours, +%d points!", res.Points), nil
}

func (b *Bot) cmdGiveaway(ctx context.Context, channel, user string) (string, error) {
	if err := b.svc.EnterGiveaway(ctx, channel, user); err != nil {
		return "", err
	}
	return "you're in the giveaway, good luck!", nil
}

func (b *Bot) cmdStatus(ctx context.Context, channel, user string) (string, error) {
	st, err := b.svc.Status(ctx, channel, user)
	if err != nil {
		return "", err
	}
	clan := "no clan"
	if st.Clan != nil {
		clan = fmt.Sprintf("%s [%s]", st.Clan.Name, st.Clan.Tag)
	}
	rank := fmt.Sprintf("rank #%d", st.Rank)
	if st.ClanRank > 0 && st.Clan != nil {
		rank += fmt.Sprintf(" (#%d in clan)", st.ClanRank)
	}
	return fmt.Sprintf("%s | %s | %d points this season | %d lifetime | %d watch minutes",
		clan, rank, st.Points, st.Lifetime, st.WatchMinutes), nil
}

func (b *Bot) cmdStandings(ctx context.Context, channel string) (string, error) {
	season, standings, err := b.svc.Standings(ctx, channel)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(standings))
	for _, st := range standings {
		parts = append(parts, fmt.Sprintf("%s [%s] %d", st.Clan.Name, st.Clan.Tag, st.Points))
	}
	return fmt.Sprintf("%s standings: %s", season.Name, strings.Join(parts, " | ")), nil
}

func (b *Bot) cmdLeaderboard(ctx context.Context, channel string) (string, error) {
	_, top, err := b.svc.Leaderboard(ctx, channel, 5)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "no one has scored yet this season.", nil
	}
	parts := make([]string, 0, len(top))
	for i, p := range top {
		parts = append(parts, fmt.Sprintf("%d. %s (%d)", i+1, p.Name, p.Points))
	}
	return "top warriors: " + strings.Join(parts, " | "), nil
}

func (b *Bot) cmdMVP(ctx context.Context, channel string) (string, error) {
	season, mvp, err := b.svc.MVP(ctx, channel)
	if err != nil {
		return "", err
	}
	if mvp == nil {
		return fmt.Sprintf("%s ended without a scorer.", season.Name), nil
	}
	return fmt.Sprintf("MVP of %s: %s with %d points!", season.Name, mvp.Name, mvp.Points), nil
}

func (b *Bot) cmdClanChampions(ctx context.Context, channel string) (string, error) {
	champions, err := b.svc.ClanChampions(ctx, channel)
	if err != nil {
		return "", err
	}
	if len(champions) == 0 {
		return "no clan has scored yet this season.", nil
	}
	parts := make([]string, 0, len(champions))
	for _, c := range champions {
		parts = append(parts, fmt.Sprintf("%s [%s]: %s (%d)", c.Clan.Name, c.Clan.Tag, c.Player, c.Points))
	}
	return "clan champions: " + strings.Join(parts, " | "), nil
}

func (b *Bot) cmdDates(ctx context.Context, channel string) (string, error) {
	season, err := b.svc.SeasonInfo(ctx, channel)
	if err != nil {
		return "", err
	}
	msg := fmt.Sprintf("%s started %s", season.Name, season.StartDate.Format("02/01/2006"))
	if season.InfoEndDate.Valid {
		msg += fmt.Sprintf(" and ends %s", season.InfoEndDate.Time.Format("02/01/2006"))
	}
	return msg + ".", nil
}

func (b *Bot) cmdMyRewards(ctx context.Context, channel, user string) (string, error) {
	reward, points, err := b.svc.PlayerReward(ctx, channel, user)
	if err != nil {
		return "", err
	}
	if reward == nil {
		return fmt.Sprintf("%d points, no reward level reached yet.", points), nil
	}
	return fmt.Sprintf("%d points, reward level %d unlocked: %s", points, reward.Level, reward.Reward), nil
}

func (b *Bot) cmdClans(ctx context.Context, channel string) (string, error) {
	clans, err := b.svc.Clans(ctx, channel)
	if err != nil {
		return "", err
	}
	if len(clans) == 0 {
		return "no clans yet.", nil
	}
	parts := make([]string, 0, len(clans))
	for _, c := range clans {
		parts = append(parts, fmt.Sprintf("%s [%s] (%d members)", c.Clan.Name, c.Clan.Tag, c.Count))
	}
	return strings.Join(parts, " | "), nil
}

func (b *Bot) cmdRoster(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 1 {
		return "usage: ?roster <clan>", nil
	}
	clan, roster, err := b.svc.ClanRoster(ctx, channel, args[0])
	if err != nil {
		return "", err
	}
	if len(roster) == 0 {
		return fmt.Sprintf("%s has no members yet.", clan.Name), nil
	}
	names := make([]string, 0, len(roster))
	for _, p := range roster {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("%s roster: %s", clan.Name, strings.Join(names, ", ")), nil
}

func (b *Bot) cmdRewards(ctx context.Context, channel string) (string, error) {
	levels, err := b.svc.RewardLevels(ctx, channel)
	if err != nil {
		return "", err
	}
	if len(levels) == 0 {
		return "no reward levels configured.", nil
	}
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, fmt.Sprintf("%d: %s", l.Level, l.Reward))
	}
	return "rewards: " + strings.Join(parts, " | "), nil
}

func (b *Bot) cmdGifted(ctx context.Context, channel string) (string, error) {
	leaders, err := b.svc.GiftedLeaders(ctx, channel, 5)
	if err != nil {
		return "", err
	}
	if len(leaders) == 0 {
		return "no gifted subs yet.", nil
	}
	parts := make([]string, 0, len(leaders))
	for i, l := range leaders {
		parts = append(parts, fmt.Sprintf("%d. %s (%d)", i+1, l.Name, l.Points))
	}
	return "top gifters: " + strings.Join(parts, " | "), nil
}

func (b *Bot) cmdWatchtime(ctx context.Context, channel string) (string, error) {
	leaders, err := b.svc.WatchLeaders(ctx, channel, 5)
	if err != nil {
		return "", err
	}
	if len(leaders) == 0 {
		return "no watch time recorded this season.", nil
	}
	parts := make([]string, 0, len(leaders))
	for i, l := range leaders {
		parts = append(parts, fmt.Sprintf("%d. %s (%dm)", i+1, l.Name, l.Points))
	}
	return "top watchers: " + strings.Join(parts, " | "), nil
}

func (b *Bot) cmdNickname(ctx context.Context, channel, user string, args []string) (string, error) {
	if len(args) < 1 {
		return "usage: ?nickname <name>", nil
	}
	if err := b.svc.SetNickname(ctx, channel, user, strings.Join(args, " ")); err != nil {
		return "", err
	}
	return "nickname updated.", nil
}

func (b *Bot) cmdStartSpoils(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 1 {
		return "usage: ?startspoils <points>", nil
	}
	reward, err := strconv.Atoi(args[0])
	if err != nil || reward <= 0 {
		return "usage: ?startspoils <points>", nil
	}
	if err := b.svc.StartSpoils(ctx, channel, reward); err != nil {
		return "", err
	}
	return fmt.Sprintf("Spoils of war! Type ?spoils to claim %d points.", reward), nil
}

func (b *Bot) cmdStartClanSpoils(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "usage: ?startclanspoils <clan> <points>", nil
	}
	reward, err := strconv.Atoi(args[1])
	if err != nil || reward <= 0 {
		return "usage: ?startclanspoils <clan> <points>", nil
	}
	clan, err := b.svc.StartClanSpoils(ctx, channel, args[0], reward)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Spoils for %s! Members type ?clanspoils to claim %d points.", clan.Name, reward), nil
}

func (b *Bot) cmdEndClanSpoils(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 1 {
		return "usage: ?endclanspoils <clan>", nil
	}
	clan, err := b.svc.EndClanSpoils(ctx, channel, args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("The spoils of %s are gone.", clan.Name), nil
}

func (b *Bot) cmdAdjustPoints(ctx context.Context, channel string, args []string, add bool) (string, error) {
	if len(args) < 2 {
		return "usage: ?addpoints <user> <points>", nil
	}
	points, err := strconv.Atoi(args[1])
	if err != nil || points <= 0 {
		return "usage: ?addpoints <user> <points>", nil
	}
	target := strings.TrimPrefix(strings.ToLower(args[0]), "@")
	if add {
		if err := b.svc.AwardPoints(ctx, channel, target, points); err != nil {
			return "", err
		}
		return fmt.Sprintf("gave %d points to %s.", points, target), nil
	}
	if err := b.svc.DeductPoints(ctx, channel, target, points); err != nil {
		return "", err
	}
	return fmt.Sprintf("took %d points from %s.", points, target), nil
}

func (b *Bot) cmdMovePlayer(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "usage: ?moveplayer <user> <clan>", nil
	}
	target := strings.TrimPrefix(strings.ToLower(args[0]), "@")
	clan, err := b.svc.MovePlayer(ctx, channel, target, args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s now fights for %s.", target, clan.Name), nil
}

func (b *Bot) cmdTogglePlayer(ctx context.Context, channel string, args []string, enabled bool) (string, error) {
	if len(args) < 1 {
		return "usage: ?disableplayer <user>", nil
	}
	target := strings.TrimPrefix(strings.ToLower(args[0]), "@")
	if err := b.svc.SetPlayerEnabled(ctx, channel, target, enabled); err != nil {
		return "", err
	}
	if enabled {
		return fmt.Sprintf("%s is back in the game.", target), nil
	}
	return fmt.Sprintf("%s is out of the game.", target), nil
}

func (b *Bot) cmdSetDate(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 1 {
		return "usage: ?setdate <DD/MM/YYYY>", nil
	}
	season, err := b.svc.SetAdvertisedEndDate(ctx, channel, args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s now ends %s.", season.Name, args[0]), nil
}

func (b *Bot) cmdSetReward(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "usage: ?setreward <level> <reward text>", nil
	}
	level, err := strconv.Atoi(args[0])
	if err != nil || level <= 0 {
		return "usage: ?setreward <level> <reward text>", nil
	}
	if err := b.svc.SetRewardLevel(ctx, channel, level, strings.Join(args[1:], " ")); err != nil {
		return "", err
	}
	return fmt.Sprintf("reward level %d set.", level), nil
}

func (b *Bot) cmdAddPrize(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "usage: ?addprize <points> <prize text>", nil
	}
	vp, err := strconv.Atoi(args[0])
	if err != nil || vp < 0 {
		return "usage: ?addprize <points> <prize text>", nil
	}
	if err := b.svc.AddGiveawayPrize(ctx, channel, strings.Join(args[1:], " "), vp); err != nil {
		return "", err
	}
	return "prize added to the giveaway pool.", nil
}

func (b *Bot) cmdStartSeason(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 1 {
		return "usage: ?startseason <name>", nil
	}
	season, err := b.svc.StartSeason(ctx, channel, strings.Join(args, " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s has begun! Enroll with ?enroll and fight for your clan!", season.Name), nil
}

func (b *Bot) cmdEndSeason(ctx context.Context, channel string, args []string) (string, error) {
	endDate := ""
	if len(args) > 0 {
		endDate = args[0]
	}
	season, err := b.svc.EndSeason(ctx, channel, endDate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is over! Check ?mvp for the champion.", season.Name), nil
}

func (b *Bot) cmdCreateClan(ctx context.Context, channel string, args []string) (string, error) {
	if len(args) < 2 {
		return "usage: ?createclan <name> <tag> [emoji]", nil
	}
	emoji := ""
	if len(args) > 2 {
		emoji = args[2]
	}
	clan, err := b.svc.CreateClan(ctx, channel, args[0], args[1], emoji)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("clan %s [%s] founded!", clan.Name, clan.Tag), nil
}

// reply converts a command result into chat text, translating known game
// errors into short messages. Unknown errors are logged and answered
// generically; unregistered channels stay silent.
func (b *Bot) reply(msg string, err error) string {
	if err == nil {
		return msg
	}
	return errorReply(err)
}

// replyErr is reply for commands that only return an error.
func (b *Bot) replyErr(err error, ok string) string {
	if err == nil {
		return ok
	}
	return errorReply(err)
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, game.ErrChannelNotRegistered):
		return ""
	case errors.Is(err, game.ErrNoActiveSeason):
		return "no season is running."
	case errors.Is(err, game.ErrSeasonActive):
		return "a season is already running."
	case errors.Is(err, game.ErrNoActiveSession):
		return "nothing to check in to right now."
	case errors.Is(err, game.ErrSessionActive):
		return "one is already running."
	case errors.Is(err, game.ErrSessionInProgress):
		return "end the session first."
	case errors.Is(err, game.ErrNoActiveSentry):
		return "the sentries are resting."
	case errors.Is(err, game.ErrNoActiveSpoils):
		return "no spoils to claim right now."
	case errors.Is(err, game.ErrSpoilsActive):
		return "spoils are already out."
	case errors.Is(err, game.ErrAlreadyCheckedIn):
		return "you already checked in."
	case errors.Is(err, game.ErrAlreadyClaimed):
		return "you already claimed that."
	case errors.Is(err, game.ErrAlreadyEntered):
		return "you're already in."
	case errors.Is(err, game.ErrNotEnrolled):
		return "you're not enrolled, type ?enroll to join the battle."
	case errors.Is(err, game.ErrPlayerDisabled):
		return "you're sitting this one out."
	case errors.Is(err, game.ErrNoClan):
		return "you're not in a clan roster, ask a mod to place you."
	case errors.Is(err, game.ErrNoClans):
		return "no clans exist yet."
	case errors.Is(err, game.ErrClanNotFound):
		return "no such clan."
	case errors.Is(err, game.ErrClanNameTaken):
		return "that clan name is taken."
	case errors.Is(err, game.ErrClanTagTaken):
		return "that clan tag is taken."
	case errors.Is(err, game.ErrTagTooLong):
		return "clan tags are 4 characters max."
	case errors.Is(err, game.ErrInvalidDate):
		return "dates look like DD/MM/YYYY."
	case errors.Is(err, game.ErrNoOpenGiveaway):
		return "no giveaway is open right now."
	case errors.Is(err, game.ErrGiveawayOpen):
		return "a giveaway is already open."
	default:
		slog.Error("command failed", slog.Any("err", err))
		return "something went wrong, try again."
	}
}
