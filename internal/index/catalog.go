package index

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/manvue/go-backend/pkg/e"
)

// Pair — неизменяемая версия каталога: индекс и выровненные метаданные.
// После публикации пара не мутирует; перестроение собирает новую пару
// целиком и подменяет указатель.
type Pair struct {
	Index   *FlatIndex
	Meta    *MetadataStore
	BuiltAt time.Time
}

// NewPair собирает пару и проверяет несущий инвариант выравнивания.
func NewPair(idx *FlatIndex, meta *MetadataStore) (*Pair, error) {
	if idx.Size() != meta.Len() {
		return nil, e.Wrap(
			fmt.Sprintf("index size %d, metadata len %d", idx.Size(), meta.Len()),
			e.ErrRowMisaligned,
		)
	}
	return &Pair{Index: idx, Meta: meta, BuiltAt: time.Now().UTC()}, nil
}

// Catalog — версионированный держатель текущей пары.
// Публикация — одна атомарная запись указателя; читатели продолжают
// работать со старой парой до её завершения, блокировок не требуется.
type Catalog struct {
	cur atomic.Pointer[Pair]
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

// Snapshot возвращает текущую пару или e.ErrIndexUnavailable, если каталог
// ещё не публиковался.
func (c *Catalog) Snapshot() (*Pair, error) {
	p := c.cur.Load()
	if p == nil {
		return nil, e.ErrIndexUnavailable
	}
	return p, nil
}

// Publish атомарно подменяет текущую пару.
func (c *Catalog) Publish(p *Pair) {
	c.cur.Store(p)
}

// Ready сообщает, опубликована ли хоть одна версия каталога.
func (c *Catalog) Ready() bool {
	return c.cur.Load() != nil
}
