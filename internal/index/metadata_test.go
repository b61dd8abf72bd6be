package index

import (
	"path/filepath"
	"testing"

	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []domain.Metadata {
	return []domain.Metadata{
		{Filename: "a.jpg", ProductID: 1, Name: "Shirt", Category: "tops", PriceCents: 4599},
		{Filename: "b.jpg", ProductID: 2, Name: "Jeans", Category: "bottoms", PriceCents: 6999},
		{Filename: "c.jpg", ProductID: 3, Name: "Boots", Category: "shoes", PriceCents: 12999},
	}
}

func TestMetadataStore_Get(t *testing.T) {
	m := NewMetadataStore(sampleRows())

	got := m.Get(1)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ProductID)

	assert.Nil(t, m.Get(-1))
	assert.Nil(t, m.Get(3))
}

func TestMetadataStore_BulkGetKeepsOrder(t *testing.T) {
	m := NewMetadataStore(sampleRows())

	rows, err := m.BulkGet([]int{2, 0})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0].ProductID)
	assert.Equal(t, int64(1), rows[1].ProductID)
}

func TestMetadataStore_BulkGetOutOfRange(t *testing.T) {
	m := NewMetadataStore(sampleRows())

	_, err := m.BulkGet([]int{0, 7})
	assert.ErrorIs(t, err, e.ErrRowMisaligned)
}

func TestMetadataStore_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")

	m := NewMetadataStore(sampleRows())
	require.NoError(t, m.Save(path))

	loaded, err := LoadMetadataStore(path)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Len())

	got := loaded.Get(0)
	require.NotNil(t, got)
	assert.Equal(t, "a.jpg", got.Filename)
	assert.Equal(t, int64(4599), got.PriceCents)
}

func TestLoadMetadataStore_Missing(t *testing.T) {
	_, err := LoadMetadataStore(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, e.ErrIndexUnavailable)
}

func TestMetadataStore_CloneIsIndependent(t *testing.T) {
	m := NewMetadataStore(sampleRows())

	clone := m.Clone()
	clone.Append(domain.Metadata{ProductID: 4})

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 4, clone.Len())
}
