package http

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/internal/usecase"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
)

// OutfitHandler обслуживает генерацию комплектов вокруг базового товара.
type OutfitHandler struct {
	outfitUsecase usecase.OutfitUC
	logger        logger.Logger
}

func NewOutfitHandler(outfitUsecase usecase.OutfitUC, logger logger.Logger) *OutfitHandler {
	return &OutfitHandler{outfitUsecase: outfitUsecase, logger: logger}
}

// generateOutfits
//
//	@Summary		Генерация комплектов для товара
//	@Description	Собирает до max_outfits комплектов вокруг базового товара по правилам совместимости категорий
//	@Tags			outfits
//	@Produce		json
//	@Param			productID	path		integer	true	"ID базового товара"
//	@Param			max_outfits	query		integer	false	"Максимум комплектов (по умолчанию 3)"
//	@Success		200			{object}	OutfitsResponse
//	@Failure		400			{object}	ErrorResponse	"Некорректные параметры"
//	@Failure		404			{object}	ErrorResponse	"Товар не найден"
//	@Router			/outfits/{productID} [post]
func (o *OutfitHandler) generateOutfits(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		o.logger.Warnf("%d %s: bad productID %q", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), chi.URLParam(r, "productID"))
		WriteError(w, e.ErrStatusBadRequest)
		return
	}

	maxOutfits, err := parseOptionalInt(r.URL.Query().Get("max_outfits"))
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := o.outfitUsecase.GenerateOutfits(r.Context(), usecase.NewGenerateOutfitsReq(productID, maxOutfits, 0))
	if err != nil {
		o.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, OutfitsResponse{
		BaseProductID: productID,
		Outfits:       toOutfits(res.Outfits),
	})
}

// categories
//
//	@Summary		Категории с правилами совместимости
//	@Tags			outfits
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Router			/outfits/categories [get]
func (o *OutfitHandler) categories(w http.ResponseWriter, r *http.Request) {
	categories := domain.KnownOutfitCategories()
	sort.Strings(categories)

	WriteSuccess(w, http.StatusOK, map[string][]string{
		"categories": categories,
	})
}
