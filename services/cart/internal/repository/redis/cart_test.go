package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	apperrors "github.com/Zchasse63/vercelpickle-sub006/pkg/errors"
	"github.com/Zchasse63/vercelpickle-sub006/services/cart/internal/domain"
)

func setupTestRedis(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartRepository(client, 24*time.Hour), mr
}

func sampleCart() *domain.Cart {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Cart{
		ID:     "cart-001",
		UserID: "user-001",
		Items: []cart.Item{
			{
				ID:        "7f1c2c1e-8d0e-4a8f-9a57-2f3a3f0c9b10",
				ProductID: "prod-1",
				Quantity:  2,
				Product: cart.ProductSnapshot{
					Name:     "Bread & Butter Chips",
					Price:    decimal.RequireFromString("8.49"),
					Images:   []string{"https://cdn.pickle.test/prod-1.jpg"},
					SellerID: "seller-1",
					Unit:     "jar",
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func seed(t *testing.T, mr *miniredis.Miniredis, c *domain.Cart) {
	t.Helper()
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, mr.Set("cart:"+c.UserID, string(data)))
}

func TestCartRepository_Get(t *testing.T) {
	repo, mr := setupTestRedis(t)
	want := sampleCart()
	want.Version = 4
	seed(t, mr, want)

	got, err := repo.Get(context.Background(), want.UserID)
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, 4, got.Version)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "prod-1", got.Items[0].ProductID)
	assert.True(t, decimal.RequireFromString("8.49").Equal(got.Items[0].Product.Price))
	assert.Equal(t, []string{"https://cdn.pickle.test/prod-1.jpg"}, got.Items[0].Product.Images)
}

func TestCartRepository_Get_NotFound(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.Get(context.Background(), "nobody")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_Get_CorruptData(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:user-001", "{not json"))

	_, err := repo.Get(context.Background(), "user-001")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal cart")
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_Get_RedisDown(t *testing.T) {
	repo, mr := setupTestRedis(t)
	mr.Close()

	_, err := repo.Get(context.Background(), "user-001")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get cart")
}

func TestCartRepository_SaveIfVersion_NewCart(t *testing.T) {
	repo, mr := setupTestRedis(t)
	c := sampleCart()

	ok, err := repo.SaveIfVersion(context.Background(), c, 0)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Version)
	assert.Equal(t, 24*time.Hour, mr.TTL("cart:user-001"))

	stored, err := repo.Get(context.Background(), "user-001")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

func TestCartRepository_SaveIfVersion_Advances(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()
	c := sampleCart()

	for want := 1; want <= 3; want++ {
		ok, err := repo.SaveIfVersion(ctx, c, want-1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, c.Version)
	}
}

func TestCartRepository_SaveIfVersion_StaleVersion(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	first := sampleCart()
	ok, err := repo.SaveIfVersion(ctx, first, 0)
	require.NoError(t, err)
	require.True(t, ok)

	second := sampleCart()
	second.Items = nil
	ok, err = repo.SaveIfVersion(ctx, second, 0)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, second.Version, "version is untouched on conflict")

	stored, err := repo.Get(ctx, "user-001")
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestCartRepository_SaveIfVersion_ConcurrentWritersOneWins(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	const writers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.SaveIfVersion(ctx, sampleCart(), 0)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestCartRepository_SaveIfVersion_RefreshesTTL(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()
	c := sampleCart()

	_, err := repo.SaveIfVersion(ctx, c, 0)
	require.NoError(t, err)
	mr.FastForward(20 * time.Hour)
	require.Equal(t, 4*time.Hour, mr.TTL("cart:user-001"))

	ok, err := repo.SaveIfVersion(ctx, c, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, mr.TTL("cart:user-001"))
}

func TestCartRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t)
	seed(t, mr, sampleCart())

	require.NoError(t, repo.Delete(context.Background(), "user-001"))
	assert.False(t, mr.Exists("cart:user-001"))

	// Deleting again is a no-op.
	require.NoError(t, repo.Delete(context.Background(), "user-001"))
}

func TestCartRepository_KeysAreScopedPerUser(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	a := sampleCart()
	b := sampleCart()
	b.UserID = "user-002"
	b.Items = nil

	_, err := repo.SaveIfVersion(ctx, a, 0)
	require.NoError(t, err)
	_, err = repo.SaveIfVersion(ctx, b, 0)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"cart:user-001", "cart:user-002"}, mr.Keys())

	got, err := repo.Get(ctx, "user-002")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}
