//go:build integration

package addendum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/addendum/mocks"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/testutil/containers"
)

func TestRedisCacheSharesPages(t *testing.T) {
	rd := containers.NewRedis(t)
	ctx := context.Background()
	const pageURL = "https://l1.prodbx.com/go/view/?35587.426.20200818170923"

	ctrl := gomock.NewController(t)
	pages := mocks.NewMockPageFetcher(ctrl)
	pages.EXPECT().FetchPage(gomock.Any(), pageURL).Return([]byte("<html>addendum</html>"), nil).Times(1)

	first := NewCachingFetcher(pages, NewRedisCache(rd.Client.Client), time.Minute, nil, nil)
	_, err := first.FetchPage(ctx, pageURL)
	require.NoError(t, err)

	// A second instance sharing the same Redis never reaches the network.
	second := NewCachingFetcher(pages, NewRedisCache(rd.Client.Client), time.Minute, nil, nil)
	page, err := second.FetchPage(ctx, pageURL)
	require.NoError(t, err)
	assert.Equal(t, "<html>addendum</html>", string(page))

	ttl, err := rd.Client.TTL(ctx, pageKey(pageURL)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)

	rd.Reset(t)
	_, ok, err := NewRedisCache(rd.Client.Client).Get(ctx, pageKey(pageURL))
	require.NoError(t, err)
	assert.False(t, ok)
}
