package gateway_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btreestore/blockdevice"
	"btreestore/bplustree"
	"btreestore/bufferpool"
	"btreestore/codec"
	"btreestore/errs"
	"btreestore/gateway"
)

func intCmp(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func testOptions() bplustree.Options[int64, string] {
	return bplustree.Options[int64, string]{
		Order:         4,
		PageSize:      4096,
		CacheCapacity: 64,
		WriteMode:     bufferpool.WriteBack,
		KeyCodec:      codec.Int64{},
		ValueCodec:    codec.String{},
		Compare:       intCmp,
	}
}

func newInitializedGateway(t *testing.T) *gateway.Gateway[int64, string] {
	t.Helper()
	opener := blockdevice.NewMemOpener()
	g := gateway.New[int64, string](opener)

	resp, err := g.Do(context.Background(), gateway.Request[int64, string]{
		Op: gateway.OpInitialize,
		Init: gateway.InitializeParams[int64, string]{
			StoreName: "store.db",
			Options:   testOptions(),
		},
	})
	require.NoError(t, err)
	require.NoError(t, resp.Err)
	return g
}

func TestInitializeThenInsertAndSearch(t *testing.T) {
	g := newInitializedGateway(t)
	ctx := context.Background()

	_, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpInsert, Key: 1, Value: "a"})
	require.NoError(t, err)

	resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpSearch, Key: 1})
	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Equal(t, "a", resp.Value)
}

func TestOperationBeforeInitializeFails(t *testing.T) {
	opener := blockdevice.NewMemOpener()
	g := gateway.New[int64, string](opener)

	_, err := g.Do(context.Background(), gateway.Request[int64, string]{Op: gateway.OpSearch, Key: 1})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotInitialized))
}

func TestInitializeTwiceFails(t *testing.T) {
	opener := blockdevice.NewMemOpener()
	g := gateway.New[int64, string](opener)
	init := gateway.Request[int64, string]{
		Op: gateway.OpInitialize,
		Init: gateway.InitializeParams[int64, string]{
			StoreName: "store.db",
			Options:   testOptions(),
		},
	}
	_, err := g.Do(context.Background(), init)
	require.NoError(t, err)

	_, err = g.Do(context.Background(), init)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.AlreadyExists))
}

func TestOpenMissingStoreFails(t *testing.T) {
	opener := blockdevice.NewMemOpener()
	g := gateway.New[int64, string](opener)

	_, err := g.Do(context.Background(), gateway.Request[int64, string]{
		Op: gateway.OpInitialize,
		Init: gateway.InitializeParams[int64, string]{
			StoreName:    "missing.db",
			Options:      testOptions(),
			OpenExisting: true,
		},
	})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestDeleteAndRange(t *testing.T) {
	g := newInitializedGateway(t)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		_, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpInsert, Key: i, Value: "v"})
		require.NoError(t, err)
	}

	resp, err := g.Do(ctx, gateway.Request[int64, string]{
		Op: gateway.OpRange,
		Range: bplustree.RangeOptions[int64]{
			HasStart: true, Start: 1, IncludeStart: true,
			HasEnd: true, End: 3, IncludeEnd: true,
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 3)

	del, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpDelete, Key: 2})
	require.NoError(t, err)
	assert.True(t, del.Existed)

	_, ok, err := searchHelper(ctx, g, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func searchHelper(ctx context.Context, g *gateway.Gateway[int64, string], key int64) (string, bool, error) {
	resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpSearch, Key: key})
	return resp.Value, resp.Found, err
}

func TestVerifyAndStats(t *testing.T) {
	g := newInitializedGateway(t)
	ctx := context.Background()
	for i := int64(0); i < 20; i++ {
		_, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpInsert, Key: i, Value: "v"})
		require.NoError(t, err)
	}

	verify, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpVerify})
	require.NoError(t, err)
	assert.True(t, verify.Verify.OK, "%v", verify.Verify.Violations)

	stats, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpStats})
	require.NoError(t, err)
	assert.Positive(t, stats.Stats.NodeCount)
	assert.Positive(t, stats.Stats.Height)
	assert.EqualValues(t, 20, stats.Stats.KeyCount)
	assert.Positive(t, stats.Stats.FileSize)
	assert.Positive(t, stats.Stats.CachedNodes)
}

func TestConcurrentRequestsAreAllApplied(t *testing.T) {
	g := newInitializedGateway(t)
	ctx := context.Background()

	const n = 50
	errsCh := make(chan error, n)
	for i := int64(0); i < n; i++ {
		go func(k int64) {
			_, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpInsert, Key: k, Value: "v"})
			errsCh <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errsCh)
	}

	resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpEntries})
	require.NoError(t, err)
	assert.Len(t, resp.Entries, n)
}

func TestCallerTimeoutDoesNotCorruptQueue(t *testing.T) {
	g := newInitializedGateway(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpInsert, Key: 1, Value: "a"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Timeout))

	resp, err := g.Do(context.Background(), gateway.Request[int64, string]{Op: gateway.OpSearch, Key: 1})
	require.NoError(t, err)
	assert.True(t, resp.Found)
}

func TestOperationAfterCloseIsClosedKind(t *testing.T) {
	g := newInitializedGateway(t)
	ctx := context.Background()

	_, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpClose})
	require.NoError(t, err)

	_, err = g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpSearch, Key: 1})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Closed))
}

func TestDestroyRemovesStore(t *testing.T) {
	opener := blockdevice.NewMemOpener()
	g := gateway.New[int64, string](opener)
	ctx := context.Background()

	_, err := g.Do(ctx, gateway.Request[int64, string]{
		Op: gateway.OpInitialize,
		Init: gateway.InitializeParams[int64, string]{
			StoreName: "doomed.db",
			Options:   testOptions(),
		},
	})
	require.NoError(t, err)

	_, err = g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpDestroy})
	require.NoError(t, err)

	exists, err := opener.Exists("doomed.db")
	require.NoError(t, err)
	assert.False(t, exists)

	g.Shutdown()
}
