package redis

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cn-hangzhou/ecs", EntryID(" CN-Hangzhou ", "Ecs"))
	assert.Equal(t, "endpointd:entry:cn-hangzhou/ecs", EntryKey(EntryID("cn-hangzhou", "ECS")))
	assert.Equal(t, "endpointd:location:cn-hangzhou:ecs:innerapi", LocationKey("cn-hangzhou", "Ecs", "innerAPI"))

	id, err := ExtractEntryID("endpointd:entry:cn-hangzhou/ecs")
	require.NoError(t, err)
	assert.Equal(t, "cn-hangzhou/ecs", id)

	_, err = ExtractEntryID("endpointd:entry:")
	assert.Error(t, err)
	_, err = ExtractEntryID("jump:service:whatever")
	assert.Error(t, err)
}

func TestSaveAndGetEntries(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "cn-hangzhou", ProductCode: "Ecs", Hostname: "a.example.com"}))
	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "cn-ningbo", ProductCode: "Ecs", Hostname: "b.example.com"}))
	// same normalized key overwrites
	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "CN-HANGZHOU", ProductCode: "ecs", Hostname: "c.example.com"}))

	assert.Equal(t, time.Duration(0), mr.TTL(EntryKey("cn-hangzhou/ecs")), "overrides must not expire")

	entries, err := store.GetAllEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Hostname < entries[j].Hostname })
	assert.Equal(t, "b.example.com", entries[0].Hostname)
	assert.Equal(t, "c.example.com", entries[1].Hostname)

	entry, err := store.GetEntry(ctx, "cn-ningbo/ecs")
	require.NoError(t, err)
	assert.Equal(t, domain.EndpointEntry{RegionID: "cn-ningbo", ProductCode: "Ecs", Hostname: "b.example.com"}, *entry)

	_, err = store.GetEntry(ctx, "mars/ecs")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestDeleteEntries(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "cn-hangzhou", ProductCode: "Ecs", Hostname: "a.example.com"}))
	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "cn-hangzhou", ProductCode: "Ram", Hostname: "b.example.com"}))

	require.NoError(t, store.DeleteEntry(ctx, "cn-hangzhou", "ECS"))
	entries, err := store.GetAllEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ram", entries[0].ProductCode)

	require.NoError(t, store.DeleteAllEntries(ctx))
	entries, err = store.GetAllEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, mr.Exists(AllEntriesKey()))
}

func TestGetAllEntriesSkipsDanglingIDs(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "cn-hangzhou", ProductCode: "Ecs", Hostname: "a.example.com"}))
	_, err := mr.SAdd(AllEntriesKey(), "mars/ghost")
	require.NoError(t, err)

	entries, err := store.GetAllEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	pruned, err := store.PruneDanglingEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	members, err := mr.Members(AllEntriesKey())
	require.NoError(t, err)
	assert.Equal(t, []string{"cn-hangzhou/ecs"}, members)
}

func TestAdoptOrphanEntries(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "cn-hangzhou", ProductCode: "Ecs", Hostname: "a.example.com"}))
	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "cn-beijing", ProductCode: "Ram", Hostname: "b.example.com"}))
	_, err := mr.SRem(AllEntriesKey(), "cn-beijing/ram")
	require.NoError(t, err)

	adopted, err := store.AdoptOrphanEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, adopted)

	members, err := mr.Members(AllEntriesKey())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cn-hangzhou/ecs", "cn-beijing/ram"}, members)

	adopted, err = store.AdoptOrphanEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, adopted)
}

func TestLocationEntries(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	want := domain.LocationEntry{RegionID: "cn-hangzhou", ServiceCode: "ecs", EndpointType: "innerAPI", Hostname: "ecs-vpc.cn-hangzhou.aliyuncs.com"}
	require.NoError(t, store.SaveLocationEntry(ctx, want))
	require.NoError(t, store.SaveLocationEntry(ctx, domain.LocationEntry{RegionID: "cn-beijing", ServiceCode: "ram", EndpointType: "openAPI", Hostname: "ram.aliyuncs.com"}))

	assert.Equal(t, DefaultLocationTTL, mr.TTL(LocationKey("cn-hangzhou", "ecs", "innerAPI")))

	entries, err := store.GetAllLocationEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, entries, want)

	mr.FastForward(DefaultLocationTTL + time.Second)
	entries, err = store.GetAllLocationEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "expired location entries must not be returned")
}

func TestFlushLocationEntries(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveLocationEntry(ctx, domain.LocationEntry{RegionID: "cn-hangzhou", ServiceCode: "ecs", EndpointType: "openAPI", Hostname: "x"}))
	require.NoError(t, store.SaveEntry(ctx, domain.EndpointEntry{RegionID: "cn-hangzhou", ProductCode: "Ecs", Hostname: "a.example.com"}))
	require.NoError(t, store.FlushLocationEntries(ctx))

	locs, err := store.GetAllLocationEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, locs)

	entries, err := store.GetAllEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "flushing location answers must keep overrides")
}

func TestResolveCounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.IncrementResolveCount(ctx, "regional"))
	require.NoError(t, store.IncrementResolveCount(ctx, "regional"))
	require.NoError(t, store.IncrementResolveCount(ctx, "location"))

	counts, err := store.GetResolveCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"regional": 2, "location": 1}, counts)
}
