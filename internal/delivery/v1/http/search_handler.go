package http

import (
	"net/http"

	"github.com/manvue/go-backend/internal/usecase"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
)

// SearchHandler обслуживает визуальный поиск и составной анализ изображения.
type SearchHandler struct {
	searchUsecase usecase.SearchUC
	catalogReady  func() (bool, int)
	logger        logger.Logger
}

func NewSearchHandler(searchUsecase usecase.SearchUC, catalogReady func() (bool, int), logger logger.Logger) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase, catalogReady: catalogReady, logger: logger}
}

// searchVisual
//
//	@Summary		Визуальный поиск похожих товаров
//	@Description	Принимает изображение и возвращает ранжированный список визуально похожих товаров каталога
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image		formData	file	true	"Изображение запроса"
//	@Param			top_k		formData	integer	false	"Размер выдачи (по умолчанию 6)"
//	@Param			category	formData	string	false	"Пост-фильтр по категории"
//	@Param			username	formData	string	false	"Имя пользователя для журнала запросов"
//	@Param			demo		formData	boolean	false	"Синтетическая демо-выдача"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	ErrorResponse	"Некорректное изображение или параметры"
//	@Failure		503			{object}	ErrorResponse	"Модель или индекс недоступны"
//	@Router			/search/visual [post]
func (s *SearchHandler) searchVisual(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseSearchRequest(w, r)
	if err != nil {
		s.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	res, err := s.searchUsecase.SearchSimilar(r.Context(), req)
	if err != nil {
		s.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, SearchResponse{
		QueryID: res.QueryID,
		Results: toSearchResults(res.Results),
		Demo:    res.Demo,
	})
}

// analyze
//
//	@Summary		Анализ изображения с подбором комплектов
//	@Description	Поиск похожих товаров плюс комплекты вокруг лучшего совпадения одним запросом
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image			formData	file	true	"Изображение запроса"
//	@Param			max_products	formData	integer	false	"Максимум похожих товаров"
//	@Param			max_outfits		formData	integer	false	"Максимум комплектов"
//	@Param			username		formData	string	false	"Имя пользователя для журнала запросов"
//	@Param			demo			formData	boolean	false	"Синтетическая демо-выдача"
//	@Success		200				{object}	AnalyzeResponse
//	@Failure		400				{object}	ErrorResponse	"Некорректное изображение или параметры"
//	@Failure		503				{object}	ErrorResponse	"Модель или индекс недоступны"
//	@Router			/search/analyze [post]
func (s *SearchHandler) analyze(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseAnalyzeRequest(w, r)
	if err != nil {
		s.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	res, err := s.searchUsecase.AnalyzeAndRecommend(r.Context(), req)
	if err != nil {
		s.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, AnalyzeResponse{
		QueryID:               res.QueryID,
		SimilarProducts:       toSearchResults(res.SimilarProducts),
		OutfitRecommendations: toOutfits(res.OutfitRecommendations),
		ProcessingTimeMs:      res.ProcessingTime.Milliseconds(),
		Demo:                  res.Demo,
	})
}

// health
//
//	@Summary		Готовность поискового сервиса
//	@Tags			search
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/search/health [get]
func (s *SearchHandler) health(w http.ResponseWriter, r *http.Request) {
	ready, rows := s.catalogReady()

	status := "ok"
	if !ready {
		status = "index_not_ready"
	}

	WriteSuccess(w, http.StatusOK, HealthResponse{
		Status:     status,
		IndexReady: ready,
		IndexRows:  rows,
	})
}

func (s *SearchHandler) parseSearchRequest(w http.ResponseWriter, r *http.Request) (*usecase.SearchSimilarReq, error) {
	imageData, err := parseImageForm(w, r)
	if err != nil {
		return nil, err
	}

	topK, err := parseOptionalInt(r.FormValue("top_k"))
	if err != nil {
		return nil, err
	}

	return usecase.NewSearchSimilarReq(
		imageData,
		topK,
		r.FormValue("category"),
		r.FormValue("username"),
		r.FormValue("demo") == "true",
	), nil
}

func (s *SearchHandler) parseAnalyzeRequest(w http.ResponseWriter, r *http.Request) (*usecase.AnalyzeReq, error) {
	imageData, err := parseImageForm(w, r)
	if err != nil {
		return nil, err
	}

	maxProducts, err := parseOptionalInt(r.FormValue("max_products"))
	if err != nil {
		return nil, err
	}

	maxOutfits, err := parseOptionalInt(r.FormValue("max_outfits"))
	if err != nil {
		return nil, err
	}

	return usecase.NewAnalyzeReq(
		imageData,
		maxProducts,
		maxOutfits,
		r.FormValue("username"),
		r.FormValue("demo") == "true",
	), nil
}

// parseImageForm достаёт единственный файл "image" из multipart-формы.
func parseImageForm(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	const (
		maxTotalRequestSize = 20 << 20
		maxMemory           = 16 << 20
		maxFileSize         = 15 << 20
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		return nil, err
	}

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		return nil, e.ErrNoImage
	}

	return readImageFile(files[0], maxFileSize)
}
