package strike

import (
	"context"
	"fmt"
	"testing"
	"time"

	"findr/internal/models"
	"findr/internal/repositories/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, event string, recipientID uint, payload map[string]interface{}) error {
	return nil
}

type fakeCache struct {
	entries     map[string]*RestrictionSnapshot
	hits        int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*RestrictionSnapshot{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	snapshot, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	*dest.(*RestrictionSnapshot) = *snapshot
	return true, nil
}

func (c *fakeCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.entries[key] = value.(*RestrictionSnapshot)
	return nil
}

func (c *fakeCache) RestrictionKey(userID uint) string {
	return fmt.Sprintf("restrictions:%d", userID)
}

func (c *fakeCache) InvalidateRestrictions(ctx context.Context, userID uint) error {
	delete(c.entries, c.RestrictionKey(userID))
	c.invalidated++
	return nil
}

func newFixture() (*storetest.Fake, *fakeCache, Service) {
	store := storetest.New()
	store.Users[1] = models.User{Email: "finder@example.com", Role: models.RoleFinder}
	cache := newFakeCache()
	svc := NewService(store, cache, noopNotifier{}, Config{})
	return store, cache, svc
}

func issue(t *testing.T, svc Service, offense, role string) *StrikeResult {
	t.Helper()
	result, err := svc.IssueStrike(context.Background(), IssueStrikeInput{
		UserID:      1,
		OffenseType: offense,
		Role:        role,
		Evidence:    "report #42",
		IssuedBy:    99,
	})
	require.NoError(t, err)
	return result
}

func TestIssueStrike_Levels(t *testing.T) {
	t.Run("level 1 is a warning with one point", func(t *testing.T) {
		store, _, svc := newFixture()

		result := issue(t, svc, "late_delivery", models.RoleFinder)

		assert.Equal(t, 1, result.TotalPoints)
		assert.False(t, result.Banned)
		assert.Empty(t, store.Restrictions)
		assert.Empty(t, store.Assignments)
	})

	t.Run("level 2 limits features and assigns training", func(t *testing.T) {
		store, _, svc := newFixture()

		result := issue(t, svc, "poor_quality", models.RoleFinder)

		assert.Equal(t, 2, result.TotalPoints)
		require.Len(t, store.Restrictions, 1)
		for _, r := range store.Restrictions {
			assert.Equal(t, models.RestrictionLimited, r.Type)
			require.NotNil(t, r.EndDate)
			assert.WithinDuration(t, time.Now().Add(3*24*time.Hour), *r.EndDate, time.Minute)
		}
		require.Len(t, store.Assignments, 1)
		for _, a := range store.Assignments {
			assert.Equal(t, result.Strike.ID, a.StrikeID)
		}
	})

	t.Run("level 4 suspends the account", func(t *testing.T) {
		store, _, svc := newFixture()

		issue(t, svc, "harassment", models.RoleFinder)

		require.Len(t, store.Restrictions, 1)
		for _, r := range store.Restrictions {
			assert.Equal(t, models.RestrictionSuspended, r.Type)
		}
	})

	t.Run("unknown offense is rejected", func(t *testing.T) {
		_, _, svc := newFixture()

		_, err := svc.IssueStrike(context.Background(), IssueStrikeInput{
			UserID:      1,
			OffenseType: "bad_vibes",
			Role:        models.RoleFinder,
			IssuedBy:    99,
		})
		assert.ErrorIs(t, err, ErrInvalidOffense)
	})

	t.Run("offense must match the role", func(t *testing.T) {
		_, _, svc := newFixture()

		_, err := svc.IssueStrike(context.Background(), IssueStrikeInput{
			UserID:      1,
			OffenseType: "payment_evasion",
			Role:        models.RoleFinder,
			IssuedBy:    99,
		})
		assert.ErrorIs(t, err, ErrInvalidOffense)
	})
}

func TestIssueStrike_BanThreshold(t *testing.T) {
	t.Run("points accumulate without banning below the threshold", func(t *testing.T) {
		store, _, svc := newFixture()

		issue(t, svc, "late_delivery", models.RoleFinder)    // 1
		issue(t, svc, "abusive_language", models.RoleFinder) // +3
		result := issue(t, svc, "poor_quality", models.RoleFinder)

		assert.Equal(t, 6, result.TotalPoints)
		assert.False(t, result.Banned)
		assert.False(t, store.Users[1].Banned)
	})

	t.Run("crossing the threshold bans permanently", func(t *testing.T) {
		store, _, svc := newFixture()

		issue(t, svc, "late_delivery", models.RoleFinder)    // 1
		issue(t, svc, "abusive_language", models.RoleFinder) // +3
		issue(t, svc, "poor_quality", models.RoleFinder)     // +2
		result := issue(t, svc, "fraud", models.RoleFinder)  // +5 -> 11

		assert.Equal(t, 11, result.TotalPoints)
		assert.True(t, result.Banned)
		assert.True(t, store.Users[1].Banned)

		var ban *models.UserRestriction
		for _, r := range store.Restrictions {
			if r.Type == models.RestrictionBanned {
				banned := r
				ban = &banned
			}
		}
		require.NotNil(t, ban)
		assert.Nil(t, ban.EndDate, "ban must be permanent")
	})

	t.Run("the ban replaces the level consequence", func(t *testing.T) {
		store, _, svc := newFixture()

		issue(t, svc, "fraud", models.RoleFinder)
		result := issue(t, svc, "off_platform_payment", models.RoleFinder)
		assert.Equal(t, 9, result.TotalPoints)
		assert.False(t, result.Banned)

		restrictionsBefore := len(store.Restrictions)
		result = issue(t, svc, "poor_quality", models.RoleFinder) // +2 -> 11
		assert.True(t, result.Banned)

		// Exactly one new restriction, the ban; no limited_features row.
		assert.Equal(t, restrictionsBefore+1, len(store.Restrictions))
	})
}

func TestGetUserRestrictions(t *testing.T) {
	t.Run("clean account has full capabilities", func(t *testing.T) {
		_, _, svc := newFixture()

		snapshot, err := svc.GetUserRestrictions(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, snapshot.CanPost)
		assert.True(t, snapshot.CanApply)
		assert.True(t, snapshot.CanMessage)
		assert.Zero(t, snapshot.TotalPoints)
	})

	t.Run("limited features keeps messaging open", func(t *testing.T) {
		_, _, svc := newFixture()
		issue(t, svc, "poor_quality", models.RoleFinder)

		snapshot, err := svc.GetUserRestrictions(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, snapshot.CanPost)
		assert.False(t, snapshot.CanApply)
		assert.True(t, snapshot.CanMessage)
	})

	t.Run("suspension closes everything", func(t *testing.T) {
		_, _, svc := newFixture()
		issue(t, svc, "harassment", models.RoleFinder)

		snapshot, err := svc.GetUserRestrictions(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, snapshot.CanPost)
		assert.False(t, snapshot.CanApply)
		assert.False(t, snapshot.CanMessage)
	})

	t.Run("expired but unswept restriction is ignored", func(t *testing.T) {
		store, _, svc := newFixture()
		past := time.Now().Add(-time.Hour)
		store.Restrictions[77] = models.UserRestriction{
			UserID:    1,
			Type:      models.RestrictionSuspended,
			Reason:    "old suspension",
			EndDate:   &past,
			Active:    true,
			CreatedBy: 99,
		}

		snapshot, err := svc.GetUserRestrictions(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, snapshot.CanPost)
	})

	t.Run("snapshots are cached and invalidated on new strikes", func(t *testing.T) {
		_, cache, svc := newFixture()

		_, err := svc.GetUserRestrictions(context.Background(), 1)
		require.NoError(t, err)
		_, err = svc.GetUserRestrictions(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, cache.hits)

		issue(t, svc, "late_delivery", models.RoleFinder)
		assert.Equal(t, 1, cache.invalidated)

		snapshot, err := svc.GetUserRestrictions(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, snapshot.TotalPoints)
	})
}

func TestExpireSweep(t *testing.T) {
	store, _, svc := newFixture()

	issue(t, svc, "abusive_language", models.RoleFinder)

	// Backdate the strike past its TTL and add an elapsed restriction.
	for id, strike := range store.Strikes {
		strike.ExpiresAt = time.Now().Add(-time.Minute)
		store.Strikes[id] = strike
	}
	for id, restriction := range store.Restrictions {
		past := time.Now().Add(-time.Minute)
		restriction.EndDate = &past
		store.Restrictions[id] = restriction
	}

	result, err := svc.ExpireSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.StrikesExpired)
	assert.Equal(t, int64(1), result.RestrictionsDeactivated)

	snapshot, err := svc.GetUserRestrictions(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, snapshot.TotalPoints)
	assert.True(t, snapshot.CanPost)
}
