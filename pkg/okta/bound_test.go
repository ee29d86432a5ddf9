package okta

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePager serves a fixed sequence of pages and records whether it was
// closed.
type fakePager struct {
	pages  []*Page
	index  int
	closed bool
}

func (p *fakePager) Next(ctx context.Context) (*Page, error) {
	if p.closed || p.index >= len(p.pages) {
		return nil, nil
	}
	page := p.pages[p.index]
	p.index++
	return page, nil
}

func (p *fakePager) HasNext() bool {
	return !p.closed && p.index < len(p.pages)
}

func (p *fakePager) Close() error {
	p.closed = true
	return nil
}

func makeEntities(count, offset int) []Entity {
	entities := make([]Entity, count)
	for i := range entities {
		entities[i] = Entity(fmt.Sprintf(`{"id":"u%03d"}`, offset+i))
	}
	return entities
}

func TestCollectBounded_CeilingAtPageBoundary(t *testing.T) {
	// 250 entities behind the API in pages of 100, ceiling 100: exactly one
	// page is fetched and the second page is never requested.
	pager := &fakePager{pages: []*Page{
		{Entities: makeEntities(100, 0), NextCursor: "cursor-1"},
		{Entities: makeEntities(100, 100), NextCursor: "cursor-2"},
		{Entities: makeEntities(50, 200)},
	}}

	entities, window, err := CollectBounded(context.Background(), pager, 100)
	require.NoError(t, err)

	assert.Len(t, entities, 100)
	assert.True(t, window.Truncated)
	assert.Equal(t, "cursor-1", window.NextCursor)
	assert.Equal(t, 1, pager.index, "the unusable second page must not be fetched")
	assert.True(t, pager.closed)
}

func TestCollectBounded_PageOverflow(t *testing.T) {
	pager := &fakePager{pages: []*Page{
		{Entities: makeEntities(80, 0), NextCursor: "cursor-1"},
		{Entities: makeEntities(80, 80), NextCursor: "cursor-2"},
	}}

	entities, window, err := CollectBounded(context.Background(), pager, 100)
	require.NoError(t, err)

	assert.Len(t, entities, 100)
	assert.True(t, window.Truncated)
	assert.Equal(t, "cursor-2", window.NextCursor)
	assert.True(t, pager.closed)
}

func TestCollectBounded_SmallListing(t *testing.T) {
	pager := &fakePager{pages: []*Page{
		{Entities: makeEntities(5, 0)},
	}}

	entities, window, err := CollectBounded(context.Background(), pager, 100)
	require.NoError(t, err)

	assert.Len(t, entities, 5)
	assert.False(t, window.Truncated)
	assert.Empty(t, window.NextCursor)
	assert.True(t, pager.closed)
}

func TestCollectBounded_EmptyListing(t *testing.T) {
	pager := &fakePager{}

	entities, window, err := CollectBounded(context.Background(), pager, 100)
	require.NoError(t, err)

	assert.Empty(t, entities)
	assert.False(t, window.Truncated)
	assert.Empty(t, window.NextCursor)
	assert.True(t, pager.closed)
}

func TestCollectBounded_Cancellation(t *testing.T) {
	pager := &fakePager{pages: []*Page{
		{Entities: makeEntities(10, 0), NextCursor: "cursor-1"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := CollectBounded(ctx, pager, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, pager.closed, "the pager is released even on cancellation")
}
