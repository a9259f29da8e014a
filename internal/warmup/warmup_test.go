package warmup

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/region"
)

type fakeLoader struct {
	mu     sync.Mutex
	tables map[string]*dataset.Table
	loaded []string
}

func (f *fakeLoader) Load(_ context.Context, city string) (*dataset.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, city)
	t, ok := f.tables[city]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return t, nil
}

func rows(n int) *dataset.Table {
	return dataset.NewTable(make([]dataset.Transaction, n), nil)
}

func TestPreload(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{tables: map[string]*dataset.Table{
		region.Taipei:    rows(3),
		region.NewTaipei: rows(2),
	}}

	stats, err := Preload(context.Background(), loader, region.Cities, nil)

	require.NoError(t, err)
	assert.Equal(t, map[string]int{region.Taipei: 3, region.NewTaipei: 2}, stats.Records)
	assert.Empty(t, stats.Failed)
	assert.ElementsMatch(t, region.Cities, loader.loaded)
}

func TestPreload_PartialFailure(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{tables: map[string]*dataset.Table{region.Taipei: rows(1)}}

	stats, err := Preload(context.Background(), loader, region.Cities, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, map[string]int{region.Taipei: 1}, stats.Records)
	assert.Equal(t, []string{region.NewTaipei}, stats.Failed)
}
