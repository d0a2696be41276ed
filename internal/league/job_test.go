package league

import (
	"context"
	"math/rand"
	"sort"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingoleague/internal/leveling"
	"github.com/example/lingoleague/internal/notify"
	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/internal/store/memory"
	"github.com/example/lingoleague/pkg/models"
)

// Wednesday; the ranked week is Monday 6 May to Sunday 12 May.
var fixedNow = time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)

type deltaRecorder struct {
	deltas map[int64][]int
}

func (d *deltaRecorder) CheckAward(_ context.Context, criteria models.CriteriaType, userID int64, delta int) error {
	if criteria == models.CriteriaNextLeague {
		d.deltas[userID] = append(d.deltas[userID], delta)
	}
	return nil
}

type fixture struct {
	st      *store.Store
	job     *Job
	awards  *deltaRecorder
	leagues []*models.League
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	clock := func() time.Time { return fixedNow }
	engine := leveling.NewEngine(st, nil, nil).WithClock(clock)
	f := &fixture{st: st, awards: &deltaRecorder{deltas: map[int64][]int{}}}
	f.job = NewJob(st, engine, notify.NewStoreSink(st.Notifications), rand.New(rand.NewSource(42)), logger.Nop()).
		WithAwards(f.awards).
		WithClock(clock)

	for i, name := range []string{"Bronze", "Silver", "Gold"} {
		l := &models.League{Name: name, Level: i + 1}
		require.NoError(t, st.Leagues.Create(ctx, l))
		f.leagues = append(f.leagues, l)
	}
	return f
}

func (f *fixture) addUser(t *testing.T, name string, league *models.League) *models.User {
	t.Helper()
	u := models.NewUser(name)
	if league != nil {
		u.LeagueID = league.ID
	}
	require.NoError(t, f.st.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) addGroup(t *testing.T, league *models.League, users ...*models.User) *models.Group {
	t.Helper()
	ctx := context.Background()
	g := &models.Group{Name: league.Name + "-old"}
	for _, u := range users {
		g.UserIDs = append(g.UserIDs, u.ID)
	}
	require.NoError(t, f.st.Groups.Save(ctx, g))
	league.GroupIDs = append(league.GroupIDs, g.ID)
	require.NoError(t, f.st.Leagues.Update(ctx, league))
	return g
}

func (f *fixture) leagueOf(t *testing.T, u *models.User) int64 {
	t.Helper()
	got, err := f.st.Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got.LeagueID
}

func TestMoveUsersBetweenLeaguesOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bronze, silver, gold := f.leagues[0], f.leagues[1], f.leagues[2]

	var users []*models.User
	for i, points := range []int{10, 20, 30, 40, 50} {
		u := f.addUser(t, "u"+string(rune('a'+i)), silver)
		require.NoError(t, f.st.DailyExperience.AddPoints(ctx, u.ID, time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC), points))
		users = append(users, u)
	}
	// earned this week, outside the ranked window
	require.NoError(t, f.st.DailyExperience.AddPoints(ctx, users[0].ID, time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC), 1000))
	f.addGroup(t, silver, users...)

	require.NoError(t, f.job.MoveUsersBetweenLeagues(ctx))

	assert.Equal(t, gold.ID, f.leagueOf(t, users[4]))
	assert.Equal(t, gold.ID, f.leagueOf(t, users[3]))
	// ranked both top three and bottom three: demotion is applied last
	assert.Equal(t, bronze.ID, f.leagueOf(t, users[2]))
	assert.Equal(t, bronze.ID, f.leagueOf(t, users[1]))
	assert.Equal(t, bronze.ID, f.leagueOf(t, users[0]))

	assert.Equal(t, []int{1, -1}, f.awards.deltas[users[2].ID])
	assert.Equal(t, []int{1}, f.awards.deltas[users[4].ID])
	assert.Equal(t, []int{-1}, f.awards.deltas[users[0].ID])

	moved, err := f.st.Users.GetByID(ctx, users[4].ID)
	require.NoError(t, err)
	assert.InDelta(t, leveling.Coefficient(1, gold.Level, 0, 0), moved.CoinEarningCoefficient, 1e-9)
}

func TestMoveUsersBetweenLeaguesEdges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bronze, silver, gold := f.leagues[0], f.leagues[1], f.leagues[2]

	small := []*models.User{f.addUser(t, "s1", silver), f.addUser(t, "s2", silver), f.addUser(t, "s3", silver)}
	f.addGroup(t, silver, small...)

	var bottom []*models.User
	for i := 0; i < 4; i++ {
		u := f.addUser(t, "b"+string(rune('a'+i)), bronze)
		require.NoError(t, f.st.DailyExperience.AddPoints(ctx, u.ID, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), (i+1)*10))
		bottom = append(bottom, u)
	}
	f.addGroup(t, bronze, bottom...)

	var top []*models.User
	for i := 0; i < 4; i++ {
		top = append(top, f.addUser(t, "g"+string(rune('a'+i)), gold))
	}
	f.addGroup(t, gold, top...)

	require.NoError(t, f.job.MoveUsersBetweenLeagues(ctx))

	for _, u := range small {
		assert.Equal(t, silver.ID, f.leagueOf(t, u), "groups under four members stay")
	}
	// lowest league only promotes
	assert.Equal(t, bronze.ID, f.leagueOf(t, bottom[0]))
	for _, u := range bottom[1:] {
		assert.Equal(t, silver.ID, f.leagueOf(t, u))
	}
	// highest league only demotes; equal points rank by ID so the last three go
	assert.Equal(t, gold.ID, f.leagueOf(t, top[0]))
	for _, u := range top[1:] {
		assert.Equal(t, silver.ID, f.leagueOf(t, u))
	}
}

func TestMoveUsersBetweenLeaguesRanksLocalWeek(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bronze, silver, gold := f.leagues[0], f.leagues[1], f.leagues[2]
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	// Monday 00:30 in Berlin is still Sunday in UTC
	f.job.WithClock(func() time.Time { return time.Date(2024, 5, 13, 0, 30, 0, 0, berlin) })

	var users []*models.User
	for i := 0; i < 7; i++ {
		u := f.addUser(t, "w"+string(rune('a'+i)), silver)
		require.NoError(t, f.st.DailyExperience.AddPoints(ctx, u.ID, time.Date(2024, 5, 8, 12, 0, 0, 0, berlin), (i+1)*10))
		users = append(users, u)
	}
	f.addGroup(t, silver, users...)

	require.NoError(t, f.job.MoveUsersBetweenLeagues(ctx))

	for _, u := range users[4:] {
		assert.Equal(t, gold.ID, f.leagueOf(t, u))
	}
	assert.Equal(t, silver.ID, f.leagueOf(t, users[3]))
	for _, u := range users[:3] {
		assert.Equal(t, bronze.ID, f.leagueOf(t, u))
	}
}

func TestDistributeUsersToGroups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bronze, silver := f.leagues[0], f.leagues[1]

	var all []int64
	var placed []*models.User
	for i := 0; i < 20; i++ {
		placed = append(placed, f.addUser(t, "p", bronze))
	}
	var homeless []*models.User
	for i := 0; i < 3; i++ {
		homeless = append(homeless, f.addUser(t, "h", nil))
	}
	for _, u := range append(placed, homeless...) {
		all = append(all, u.ID)
	}

	g1 := f.addGroup(t, bronze, placed[:2]...)
	g2 := f.addGroup(t, bronze)
	stale := f.addGroup(t, silver, placed[5])
	orphan := &models.Group{Name: "orphan"}
	require.NoError(t, f.st.Groups.Save(ctx, orphan))

	require.NoError(t, f.job.DistributeUsersToGroups(ctx))

	for _, u := range homeless {
		assert.Equal(t, bronze.ID, f.leagueOf(t, u))
	}

	leagues, err := f.st.Leagues.List(ctx)
	require.NoError(t, err)
	require.Len(t, leagues, 3)
	assert.Len(t, leagues[0].GroupIDs, 3)
	assert.Empty(t, leagues[1].GroupIDs)
	assert.Empty(t, leagues[2].GroupIDs)
	assert.Equal(t, g1.ID, leagues[0].GroupIDs[0])
	assert.Equal(t, g2.ID, leagues[0].GroupIDs[1])

	groups, err := f.st.Groups.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3, "empty and orphan groups are deleted")
	var ids []int64
	var sizes []int
	for _, g := range groups {
		assert.NotEqual(t, stale.ID, g.ID)
		assert.NotEqual(t, orphan.ID, g.ID)
		assert.LessOrEqual(t, len(g.UserIDs), models.GroupCapacity)
		sizes = append(sizes, len(g.UserIDs))
		ids = append(ids, g.UserIDs...)
	}
	assert.Equal(t, []int{10, 10, 3}, sizes)
	assert.ElementsMatch(t, all, ids)

	names := []string{groups[0].Name, groups[1].Name, groups[2].Name}
	sort.Strings(names)
	assert.Equal(t, []string{"Bronze-group-1", "Bronze-group-2", "Bronze-group-3"}, names)
}

func TestRotateIsSingleFlight(t *testing.T) {
	f := newFixture(t)
	f.job.mu.Lock()
	err := f.job.Rotate(context.Background())
	f.job.mu.Unlock()
	assert.ErrorIs(t, err, ErrRotationRunning)

	assert.NoError(t, f.job.Rotate(context.Background()))
}

func TestDistributeUsersToGroupsCustomSize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.job.WithGroupSize(4)
	gold := f.leagues[2]
	for i := 0; i < 9; i++ {
		f.addUser(t, "g", gold)
	}

	require.NoError(t, f.job.DistributeUsersToGroups(ctx))

	groups, err := f.st.Groups.List(ctx)
	require.NoError(t, err)
	var sizes []int
	for _, g := range groups {
		sizes = append(sizes, len(g.UserIDs))
	}
	assert.Equal(t, []int{4, 4, 1}, sizes)
}
