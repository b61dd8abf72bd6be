package index

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlatIndex_InvalidDim(t *testing.T) {
	_, err := NewFlatIndex(0)
	assert.Error(t, err)

	_, err = NewFlatIndex(-3)
	assert.Error(t, err)
}

func TestFlatIndex_AddAlignment(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)

	require.NoError(t, idx.Add([][]float32{{1, 0}, {0, 1}}, 0))
	assert.Equal(t, 2, idx.Size())

	// startRow обязан совпадать с текущим размером
	err = idx.Add([][]float32{{1, 0}}, 5)
	assert.ErrorIs(t, err, e.ErrRowMisaligned)

	// неверная размерность не дописывает ничего
	err = idx.Add([][]float32{{1, 0, 0}}, 2)
	assert.ErrorIs(t, err, e.ErrVectorDimMismatch)
	assert.Equal(t, 2, idx.Size())
}

func TestFlatIndex_SearchOrdering(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{
		{0, 1}, // далеко от запроса
		{1, 0}, // точное совпадение
		{0.8, 0.6},
	}, 0))

	dists, rows, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// точное совпадение первым, с нулевой дистанцией
	assert.Equal(t, 1, rows[0])
	assert.InDelta(t, 0.0, float64(dists[0]), 1e-6)

	// дистанции неубывающие
	assert.LessOrEqual(t, dists[0], dists[1])
	assert.LessOrEqual(t, dists[1], dists[2])
	assert.Equal(t, []int{1, 2, 0}, rows)
}

func TestFlatIndex_SearchTies(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)

	// две одинаковые строки: при равных дистанциях порядок вставки
	require.NoError(t, idx.Add([][]float32{{0, 1}, {1, 0}, {1, 0}}, 0))

	_, rows, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, rows)
}

func TestFlatIndex_SearchTopKOverSize(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}}, 0))

	dists, rows, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Len(t, dists, 1)
}

func TestFlatIndex_SearchEmpty(t *testing.T) {
	idx, err := NewFlatIndex(4)
	require.NoError(t, err)

	dists, rows, err := idx.Search([]float32{0, 0, 0, 1}, 5)
	require.NoError(t, err)
	assert.Empty(t, dists)
	assert.Empty(t, rows)
}

func TestFlatIndex_SearchDimMismatch(t *testing.T) {
	idx, err := NewFlatIndex(4)
	require.NoError(t, err)

	_, _, err = idx.Search([]float32{1, 0}, 5)
	assert.ErrorIs(t, err, e.ErrVectorDimMismatch)
}

func TestFlatIndex_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.index")

	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0, 0}, {0, 1, 0}}, 0))
	require.NoError(t, idx.Save(path))

	loaded, err := LoadFlatIndex(path, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Size())
	assert.Equal(t, 3, loaded.Dim())

	v, err := loaded.Vector(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, v)
}

func TestLoadFlatIndex_MissingFile(t *testing.T) {
	_, err := LoadFlatIndex(filepath.Join(t.TempDir(), "nope.index"), 3)
	assert.ErrorIs(t, err, e.ErrIndexUnavailable)
}

func TestLoadFlatIndex_DimMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.index")

	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	require.NoError(t, idx.Save(path))

	_, err = LoadFlatIndex(path, 512)
	assert.ErrorIs(t, err, e.ErrIndexUnavailable)
}

func TestLoadFlatIndex_CorruptRowCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.index")

	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0, 0}}, 0))
	require.NoError(t, idx.Save(path))

	// подменяем счётчик строк в заголовке на заведомо завышенный
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(raw[8:12], 1<<30)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = LoadFlatIndex(path, 3)
	assert.ErrorIs(t, err, e.ErrIndexUnavailable)
}

func TestLoadFlatIndex_TruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.index")

	idx, err := NewFlatIndex(3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0, 0}, {0, 1, 0}}, 0))
	require.NoError(t, idx.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-4], 0o644))

	_, err = LoadFlatIndex(path, 3)
	assert.ErrorIs(t, err, e.ErrIndexUnavailable)
}

func TestFlatIndex_CloneIsIndependent(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}}, 0))

	clone := idx.Clone()
	require.NoError(t, clone.Add([][]float32{{0, 1}}, 1))

	assert.Equal(t, 1, idx.Size())
	assert.Equal(t, 2, clone.Size())
}

func TestNewPair_Misaligned(t *testing.T) {
	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}}, 0))

	meta := NewMetadataStore(nil) // пусто при одной строке индекса

	_, err = NewPair(idx, meta)
	assert.ErrorIs(t, err, e.ErrRowMisaligned)
}

func TestCatalog_SnapshotLifecycle(t *testing.T) {
	cat := NewCatalog()
	assert.False(t, cat.Ready())

	_, err := cat.Snapshot()
	assert.ErrorIs(t, err, e.ErrIndexUnavailable)

	idx, err := NewFlatIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}}, 0))
	meta := NewMetadataStore([]domain.Metadata{{ProductID: 7, Name: "shirt"}})

	pair, err := NewPair(idx, meta)
	require.NoError(t, err)
	cat.Publish(pair)

	assert.True(t, cat.Ready())
	got, err := cat.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, got.Index.Size())

	// публикация новой пары не трогает выданный снимок
	idx2, err := NewFlatIndex(2)
	require.NoError(t, err)
	pair2, err := NewPair(idx2, NewMetadataStore(nil))
	require.NoError(t, err)
	cat.Publish(pair2)

	assert.Equal(t, 1, got.Index.Size())
}
