package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/showtime"
	"github.com/callboard/callboard/internal/testutil"
)

func futureDate(days int) string {
	return showtime.FormatDate(time.Now().UTC().AddDate(0, 0, days))
}

func TestActivateOnlyNextUpcoming(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewShowRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	first := testutil.SeedShow(t, db, orgID, futureDate(1), "19:30")
	second := testutil.SeedShow(t, db, orgID, futureDate(2), "19:30")

	// The later show is not the next upcoming one.
	_, err := repo.Activate(ctx, second, orgID, now)
	assert.ErrorIs(t, err, repository.ErrNotNextUpcoming)

	s, err := repo.Activate(ctx, first, orgID, now)
	require.NoError(t, err)
	require.NotNil(t, s.ActiveAt)
	require.NotNil(t, s.SignInToken)
	assert.Nil(t, s.LockedAt)
}

func TestActivateDeactivatesOthersAndRotatesToken(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewShowRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	first := testutil.SeedShow(t, db, orgID, futureDate(1), "19:30")
	second := testutil.SeedShow(t, db, orgID, futureDate(2), "19:30")

	a, err := repo.Activate(ctx, first, orgID, now)
	require.NoError(t, err)
	firstToken := *a.SignInToken

	// With the first show active it leaves the candidate set, so the second
	// one becomes activatable and supersedes it.
	b, err := repo.Activate(ctx, second, orgID, now)
	require.NoError(t, err)
	require.NotNil(t, b.ActiveAt)
	assert.NotEqual(t, firstToken, *b.SignInToken)

	reloaded, err := repo.GetByIDAndOrg(ctx, first, orgID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ActiveAt, "activating one show must deactivate the rest")

	active, err := repo.GetActive(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, second, active.ID)
}

func TestActivateRejectsClosedAndPastShows(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewShowRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)

	closed := testutil.SeedShow(t, db, orgID, futureDate(1), "19:30")
	testutil.LockShow(t, db, closed, "tok-closed")
	_, err := repo.Activate(ctx, closed, orgID, now)
	assert.ErrorIs(t, err, repository.ErrShowClosed)

	past := testutil.SeedShow(t, db, orgID, "2020-01-01", "19:30")
	_, err = repo.Activate(ctx, past, orgID, now)
	assert.ErrorIs(t, err, repository.ErrNotNextUpcoming)
}

func TestCloseSignIn(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewShowRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	id := testutil.SeedShow(t, db, orgID, futureDate(1), "19:30")

	a, err := repo.Activate(ctx, id, orgID, now)
	require.NoError(t, err)
	activeToken := *a.SignInToken

	closed, err := repo.CloseSignIn(ctx, id, orgID, now)
	require.NoError(t, err)
	require.NotNil(t, closed.LockedAt)
	assert.Nil(t, closed.ActiveAt)
	assert.NotEqual(t, activeToken, *closed.SignInToken, "closing must rotate the token")

	// Closing is terminal.
	_, err = repo.CloseSignIn(ctx, id, orgID, now)
	assert.ErrorIs(t, err, repository.ErrShowNotActive)
	_, err = repo.Activate(ctx, id, orgID, now)
	assert.ErrorIs(t, err, repository.ErrShowClosed)
}

func TestShowTenantScoping(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewShowRepo(db)
	ctx := context.Background()

	orgA := testutil.SeedOrg(t, db, "A", "org-a", 0)
	orgB := testutil.SeedOrg(t, db, "B", "org-b", 0)
	id := testutil.SeedShow(t, db, orgA, futureDate(1), "19:30")

	_, err := repo.GetByIDAndOrg(ctx, id, orgB)
	assert.ErrorIs(t, err, repository.ErrShowNotFound, "cross-tenant reads look like missing rows")

	_, err = repo.Activate(ctx, id, orgB, time.Now().UTC())
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
}

func TestCreateDuplicateSlot(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewShowRepo(db)
	ctx := context.Background()

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")

	err := repo.Create(ctx, &repository.Show{OrganizationID: orgID, Date: "2026-09-01", ShowTime: "19:30"})
	assert.ErrorIs(t, err, repository.ErrDuplicateShow)
}

func TestDeleteExpiredWithoutAttendance(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewShowRepo(db)
	ctx := context.Background()

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	actor := testutil.SeedUser(t, db, orgID, "a@troupe.test", "actor", "Ada", "Lear")

	stale := testutil.SeedShow(t, db, orgID, "2020-01-01", "19:30")
	attended := testutil.SeedShow(t, db, orgID, "2020-01-02", "19:30")
	upcoming := testutil.SeedShow(t, db, orgID, futureDate(3), "19:30")

	attRepo := repository.NewAttendanceRepo(db)
	_, err := attRepo.Upsert(ctx, actor, attended, repository.StatusSignedIn, nil, time.Now().UTC())
	require.NoError(t, err)

	n, err := repo.DeleteExpiredWithoutAttendance(ctx, orgID, time.Now().UTC().Add(-36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByIDAndOrg(ctx, stale, orgID)
	assert.ErrorIs(t, err, repository.ErrShowNotFound)
	_, err = repo.GetByIDAndOrg(ctx, attended, orgID)
	assert.NoError(t, err, "shows with attendance are kept forever")
	_, err = repo.GetByIDAndOrg(ctx, upcoming, orgID)
	assert.NoError(t, err)
}

func TestListRangeOrdering(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewShowRepo(db)
	ctx := context.Background()

	orgID := testutil.SeedOrg(t, db, "Troupe", "troupe", 0)
	testutil.SeedShow(t, db, orgID, "2026-09-02", "14:00")
	testutil.SeedShow(t, db, orgID, "2026-09-01", "19:30")
	testutil.SeedShow(t, db, orgID, "2026-09-01", "14:00")
	testutil.SeedShow(t, db, orgID, "2026-09-03", "19:30")

	shows, err := repo.ListRange(ctx, orgID, "2026-09-01", "2026-09-02")
	require.NoError(t, err)
	require.Len(t, shows, 3)
	assert.Equal(t, "2026-09-01", shows[0].Date)
	assert.Equal(t, "14:00", shows[0].ShowTime)
	assert.Equal(t, "2026-09-01", shows[1].Date)
	assert.Equal(t, "19:30", shows[1].ShowTime)
	assert.Equal(t, "2026-09-02", shows[2].Date)
}
