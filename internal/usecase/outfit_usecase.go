package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
)

// OutfitService собирает комплекты вокруг базового товара по статичным
// правилам совместимости категорий. Правила живут в domain, сервис только
// подбирает товары под слоты.
type OutfitService struct {
	catalog CatalogRepository
	cache   CacheRepository
	picker  ItemPicker
	cfg     *cfg.SearchCfg
	logger  logger.Logger
}

func NewOutfitService(
	catalog CatalogRepository,
	cache CacheRepository,
	picker ItemPicker,
	cfg *cfg.SearchCfg,
	logger logger.Logger,
) *OutfitService {
	return &OutfitService{
		catalog: catalog,
		cache:   cache,
		picker:  picker,
		cfg:     cfg,
		logger:  logger,
	}
}

// GenerateOutfits возвращает до MaxOutfits комплектов для базового товара.
// Для неизвестной категории базового товара возвращается пустой список —
// это не ошибка, правила просто отсутствуют.
func (o *OutfitService) GenerateOutfits(ctx context.Context, req *GenerateOutfitsReq) (*GenerateOutfitsRes, error) {
	const op = "OutfitService.GenerateOutfits"

	maxOutfits, err := o.normalizeMaxOutfits(req.MaxOutfits)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	base, err := o.baseProduct(ctx, req.BaseProductID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	slots := domain.CompatibleSlots(base.CategoryName)
	if slots == nil {
		o.logger.Infof("no outfit rules for category %q, product %d", base.CategoryName, base.ID)
		return &GenerateOutfitsRes{Outfits: []domain.OutfitBundle{}}, nil
	}

	// Кандидаты по слотам запрашиваются один раз и переиспользуются
	// всеми вариантами комплекта.
	candidates := make([][]ProductInfo, len(slots))
	for i, slot := range slots {
		// Подбор всегда из первой категории слота: комплект остаётся
		// стилистически цельным.
		found, err := o.catalog.GetByCategory(ctx, slot.Categories[0], true, o.cfg.CatalogLimit)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		candidates[i] = found
	}

	outfits := make([]domain.OutfitBundle, 0, maxOutfits)
	for i := 0; i < maxOutfits; i++ {
		outfits = append(outfits, o.assembleOutfit(base, slots, candidates, req.InheritedConfidence, i))
	}

	return &GenerateOutfitsRes{Outfits: outfits}, nil
}

// assembleOutfit собирает один вариант комплекта. Слот без товаров в наличии
// опускается, базовый товар присутствует всегда и ровно один раз.
func (o *OutfitService) assembleOutfit(
	base *ProductInfo,
	slots []domain.RoleCandidates,
	candidates [][]ProductInfo,
	confidence int,
	outfitIndex int,
) domain.OutfitBundle {
	items := make([]domain.OutfitItem, 0, len(slots)+1)
	items = append(items, domain.OutfitItem{
		ProductID:  base.ID,
		Role:       domain.RoleBase,
		Name:       base.Name,
		Category:   base.CategoryName,
		PriceCents: base.Price,
	})

	total := base.Price
	for i, slot := range slots {
		if len(candidates[i]) == 0 {
			continue
		}

		picked := o.picker.Pick(candidates[i])
		items = append(items, domain.OutfitItem{
			ProductID:  picked.ID,
			Role:       slot.Role,
			Name:       picked.Name,
			Category:   picked.CategoryName,
			PriceCents: picked.Price,
		})
		total += picked.Price
	}

	return domain.OutfitBundle{
		ID:               uuid.NewString(),
		BaseProductID:    base.ID,
		Items:            items,
		Confidence:       confidence,
		TotalPriceCents:  total,
		StyleDescription: domain.StyleDescription(base.CategoryName, outfitIndex),
	}
}

// baseProduct достаёт базовый товар: сначала кэш, потом каталог.
// Промах и ошибки кэша не фатальны, источник истины — каталог.
func (o *OutfitService) baseProduct(ctx context.Context, id int64) (*ProductInfo, error) {
	cached, err := o.cache.GetProducts(ctx, []int64{id})
	if err != nil {
		o.logger.Warnf("product cache lookup failed for %d: %v", id, err)
	} else if p, ok := cached[id]; ok {
		return &p, nil
	}

	product, err := o.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := o.cache.SetProducts(ctx, []ProductInfo{*product}); err != nil {
		o.logger.Warnf("product cache fill failed for %d: %v", id, err)
	}

	return product, nil
}

func (o *OutfitService) normalizeMaxOutfits(maxOutfits int) (int, error) {
	if maxOutfits < 0 {
		return 0, e.ErrInvalidMaxOutfits
	}
	if maxOutfits == 0 || maxOutfits > o.cfg.MaxOutfits {
		maxOutfits = o.cfg.MaxOutfits
	}
	return maxOutfits, nil
}
