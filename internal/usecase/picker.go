package usecase

import (
	"math/rand"
	"sync"
	"time"
)

// ItemPicker выбирает один товар из непустого списка кандидатов слота.
// Политика выбора подменяемая: случайность даёт разнообразие комплектов,
// детерминированный вариант — воспроизводимость.
type ItemPicker interface {
	Pick(candidates []ProductInfo) ProductInfo
}

// RandomPicker выбирает кандидата равномерно случайно, поэтому max_outfits
// запросов дают различающиеся комплекты.
type RandomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomPicker() *RandomPicker {
	return &RandomPicker{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *RandomPicker) Pick(candidates []ProductInfo) ProductInfo {
	p.mu.Lock()
	i := p.rng.Intn(len(candidates))
	p.mu.Unlock()
	return candidates[i]
}

// FirstPicker всегда берёт первого кандидата. Детерминированная замена
// для тестов и для витрин, где нужна стабильная выдача.
type FirstPicker struct{}

func NewFirstPicker() *FirstPicker { return &FirstPicker{} }

func (p *FirstPicker) Pick(candidates []ProductInfo) ProductInfo {
	return candidates[0]
}
