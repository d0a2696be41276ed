// Package league runs the weekly league rotation: promotion and demotion
// by weekly experience, then a reshuffle of every league into groups.
package league

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/example/lingoleague/internal/apperr"
	"github.com/example/lingoleague/internal/calendar"
	"github.com/example/lingoleague/internal/leveling"
	"github.com/example/lingoleague/internal/notify"
	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

const (
	// MinGroupForMoves is the smallest group that promotes and demotes.
	MinGroupForMoves = 4
	// MovesPerGroup users go up and the same number go down.
	MovesPerGroup = 3
)

var ErrRotationRunning = apperr.InvalidState("league rotation is already running")

type Job struct {
	users   store.Users
	leagues store.Leagues
	groups  store.Groups
	daily   store.DailyExperience
	engine  *leveling.Engine
	awards  leveling.AwardChecker
	sink    notify.Sink
	log     *logger.Logger
	now     func() time.Time
	size    int

	mu    sync.Mutex
	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewJob(st *store.Store, engine *leveling.Engine, sink notify.Sink, rnd *rand.Rand, log *logger.Logger) *Job {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Job{
		users:   st.Users,
		leagues: st.Leagues,
		groups:  st.Groups,
		daily:   st.DailyExperience,
		engine:  engine,
		sink:    sink,
		log:     log,
		now:     time.Now,
		size:    models.GroupCapacity,
		rnd:     rnd,
	}
}

// WithGroupSize overrides models.GroupCapacity. Non-positive sizes are ignored.
func (j *Job) WithGroupSize(size int) *Job {
	if size > 0 {
		j.size = size
	}
	return j
}

// WithAwards enables the nextLeague award hook.
func (j *Job) WithAwards(awards leveling.AwardChecker) *Job {
	j.awards = awards
	return j
}

// WithClock replaces the time source.
func (j *Job) WithClock(now func() time.Time) *Job {
	j.now = now
	return j
}

// Rotate moves users between leagues and then redistributes groups.
// A rotation already in progress makes it fail with ErrRotationRunning.
func (j *Job) Rotate(ctx context.Context) error {
	if !j.mu.TryLock() {
		return ErrRotationRunning
	}
	defer j.mu.Unlock()

	start := time.Now()
	if err := j.MoveUsersBetweenLeagues(ctx); err != nil {
		return fmt.Errorf("failed to move users between leagues: %w", err)
	}
	if err := j.DistributeUsersToGroups(ctx); err != nil {
		return fmt.Errorf("failed to distribute users to groups: %w", err)
	}
	j.log.Info("league rotation finished", "took", time.Since(start).String())
	return nil
}

type rankedUser struct {
	id     int64
	points int
}

// MoveUsersBetweenLeagues ranks every group of at least MinGroupForMoves
// members by experience earned last week. The top MovesPerGroup go to the
// next league and the bottom MovesPerGroup to the previous one. In small
// groups a user can be in both sets; the demotion is applied last and wins.
func (j *Job) MoveUsersBetweenLeagues(ctx context.Context) error {
	leagues, err := j.leagues.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list leagues: %w", err)
	}
	groups, err := j.groupsByID(ctx)
	if err != nil {
		return err
	}
	from, to := calendar.PreviousWeek(j.now())

	moved := 0
	for i := range leagues {
		var next, prev *models.League
		if i+1 < len(leagues) {
			next = &leagues[i+1]
		}
		if i > 0 {
			prev = &leagues[i-1]
		}

		for _, gid := range leagues[i].GroupIDs {
			group, ok := groups[gid]
			if !ok || len(group.UserIDs) < MinGroupForMoves {
				continue
			}
			ranked := j.rank(ctx, group.UserIDs, from, to)

			if next != nil {
				for _, u := range ranked[:MovesPerGroup] {
					if j.moveUser(ctx, u.id, next, 1) {
						moved++
					}
				}
			}
			if prev != nil {
				for _, u := range ranked[len(ranked)-MovesPerGroup:] {
					if j.moveUser(ctx, u.id, prev, -1) {
						moved++
					}
				}
			}
		}
	}
	j.log.Info("league moves applied", "moves", moved, "week_start", from.Format(time.DateOnly))
	return nil
}

// rank orders users by points descending, ties by ascending ID.
func (j *Job) rank(ctx context.Context, userIDs []int64, from, to time.Time) []rankedUser {
	ranked := make([]rankedUser, 0, len(userIDs))
	for _, id := range userIDs {
		points, err := j.daily.SumBetween(ctx, id, from, to)
		if err != nil {
			j.log.Warn("failed to sum weekly experience", "user_id", id, "error", err)
		}
		ranked = append(ranked, rankedUser{id: id, points: points})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].points != ranked[b].points {
			return ranked[a].points > ranked[b].points
		}
		return ranked[a].id < ranked[b].id
	})
	return ranked
}

func (j *Job) moveUser(ctx context.Context, userID int64, target *models.League, delta int) bool {
	user, err := j.users.GetByID(ctx, userID)
	if err != nil {
		j.log.Error("failed to load user for league move", "user_id", userID, "error", err)
		return false
	}
	user.LeagueID = target.ID
	if err := j.engine.RecomputeCoefficients(ctx, user); err != nil {
		j.log.Error("failed to recompute coefficients", "user_id", userID, "error", err)
		return false
	}
	if err := j.users.Update(ctx, user); err != nil {
		j.log.Error("failed to move user", "user_id", userID, "league_id", target.ID, "error", err)
		return false
	}

	if j.awards != nil {
		if err := j.awards.CheckAward(ctx, models.CriteriaNextLeague, userID, delta); err != nil {
			j.log.Warn("league award check failed", "user_id", userID, "error", err)
		}
	}
	msg := fmt.Sprintf("You have been moved to the %s league.", target.Name)
	if err := j.sink.Notify(ctx, userID, msg, models.ImportanceMedium); err != nil {
		j.log.Warn("failed to notify league move", "user_id", userID, "error", err)
	}
	return true
}

// DistributeUsersToGroups shuffles all users into groups of at most the
// configured size inside their league. Users without a league join
// the lowest one. Existing groups are reused, missing ones created, and
// groups left empty or unreferenced are deleted.
func (j *Job) DistributeUsersToGroups(ctx context.Context) error {
	leagues, err := j.leagues.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list leagues: %w", err)
	}
	if len(leagues) == 0 {
		j.log.Warn("no leagues configured, skipping group distribution")
		return nil
	}
	users, err := j.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	existing, err := j.groupsByID(ctx)
	if err != nil {
		return err
	}

	j.rndMu.Lock()
	j.rnd.Shuffle(len(users), func(a, b int) { users[a], users[b] = users[b], users[a] })
	j.rndMu.Unlock()

	known := make(map[int64]bool, len(leagues))
	for _, l := range leagues {
		known[l.ID] = true
	}
	lowest := &leagues[0]
	members := make(map[int64][]int64, len(leagues))
	for i := range users {
		u := &users[i]
		if !known[u.LeagueID] {
			if !j.placeUser(ctx, u, lowest) {
				continue
			}
		}
		members[u.LeagueID] = append(members[u.LeagueID], u.ID)
	}

	var emptied []int64
	for i := range leagues {
		l := &leagues[i]
		kept, dropped, err := j.fillGroups(ctx, l, members[l.ID], existing)
		if err != nil {
			return err
		}
		l.GroupIDs = kept
		emptied = append(emptied, dropped...)
	}

	if len(emptied) > 0 {
		if err := j.groups.Delete(ctx, emptied); err != nil {
			return fmt.Errorf("failed to delete empty groups: %w", err)
		}
	}
	if err := j.deleteOrphans(ctx, leagues); err != nil {
		return err
	}

	for i := range leagues {
		if err := j.leagues.Update(ctx, &leagues[i]); err != nil {
			return fmt.Errorf("failed to save league %d: %w", leagues[i].ID, err)
		}
	}
	j.log.Info("users distributed to groups", "users", len(users), "leagues", len(leagues))
	return nil
}

func (j *Job) placeUser(ctx context.Context, user *models.User, league *models.League) bool {
	user.LeagueID = league.ID
	if err := j.engine.RecomputeCoefficients(ctx, user); err != nil {
		j.log.Error("failed to recompute coefficients", "user_id", user.ID, "error", err)
		return false
	}
	if err := j.users.Update(ctx, user); err != nil {
		j.log.Error("failed to place user in league", "user_id", user.ID, "league_id", league.ID, "error", err)
		return false
	}
	return true
}

// fillGroups saves ceil(n/capacity) groups for the league, reusing its
// existing groups first. It returns the IDs of the saved groups and of the
// league's groups that ended up empty.
func (j *Job) fillGroups(ctx context.Context, l *models.League, userIDs []int64, existing map[int64]models.Group) (kept, emptied []int64, err error) {
	needed := (len(userIDs) + j.size - 1) / j.size

	var reusable []models.Group
	for _, gid := range l.GroupIDs {
		if g, ok := existing[gid]; ok {
			reusable = append(reusable, g)
		}
	}

	for i := 0; i < needed; i++ {
		var g models.Group
		if i < len(reusable) {
			g = reusable[i]
		}
		g.Name = fmt.Sprintf("%s-group-%d", l.Name, i+1)

		lo := i * j.size
		hi := lo + j.size
		if hi > len(userIDs) {
			hi = len(userIDs)
		}
		g.UserIDs = append([]int64(nil), userIDs[lo:hi]...)

		if err := j.groups.Save(ctx, &g); err != nil {
			return nil, nil, fmt.Errorf("failed to save group %s: %w", g.Name, err)
		}
		kept = append(kept, g.ID)
	}
	for i := needed; i < len(reusable); i++ {
		emptied = append(emptied, reusable[i].ID)
	}
	return kept, emptied, nil
}

func (j *Job) deleteOrphans(ctx context.Context, leagues []models.League) error {
	all, err := j.groups.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}
	referenced := make(map[int64]bool)
	for _, l := range leagues {
		for _, gid := range l.GroupIDs {
			referenced[gid] = true
		}
	}
	var orphans []int64
	for _, g := range all {
		if !referenced[g.ID] {
			orphans = append(orphans, g.ID)
		}
	}
	if len(orphans) == 0 {
		return nil
	}
	if err := j.groups.Delete(ctx, orphans); err != nil {
		return fmt.Errorf("failed to delete orphan groups: %w", err)
	}
	return nil
}

func (j *Job) groupsByID(ctx context.Context) (map[int64]models.Group, error) {
	list, err := j.groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	byID := make(map[int64]models.Group, len(list))
	for _, g := range list {
		byID[g.ID] = g
	}
	return byID, nil
}
