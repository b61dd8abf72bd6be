package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/manvue/go-backend/internal/usecase"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
)

// IngestHandler обслуживает служебные операции наполнения индекса.
type IngestHandler struct {
	ingestUsecase usecase.IngestUC
	logger        logger.Logger
}

func NewIngestHandler(ingestUsecase usecase.IngestUC, logger logger.Logger) *IngestHandler {
	return &IngestHandler{ingestUsecase: ingestUsecase, logger: logger}
}

// ingestProduct
//
//	@Summary		Векторизация изображений товара
//	@Description	Векторизует изображения существующего товара и сохраняет эмбеддинги
//	@Tags			index
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			productID	path		integer	true	"ID товара"
//	@Param			images		formData	file	true	"Изображения товара"
//	@Success		202			{object}	map[string]interface{}
//	@Failure		400			{object}	ErrorResponse	"Некорректные параметры"
//	@Failure		404			{object}	ErrorResponse	"Товар не найден"
//	@Router			/products/{productID}/embeddings [post]
func (h *IngestHandler) ingestProduct(w http.ResponseWriter, r *http.Request) {
	const (
		maxTotalRequestSize = 150 << 20
		maxMemory           = 32 << 20
		maxFileSize         = 15 << 20
	)

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		WriteError(w, e.ErrStatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxTotalRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		WriteError(w, e.ErrNoImage)
		return
	}

	images := make([]usecase.ProductImage, 0, len(files))
	for _, fh := range files {
		data, err := readImageFile(fh, maxFileSize)
		if err != nil {
			h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
			WriteError(w, err)
			return
		}
		mimeType := http.DetectContentType(data[:min(len(data), 512)])
		images = append(images, *usecase.NewProductImage(data, mimeType, int64(len(data)), fh.Filename))
	}

	if err := h.ingestUsecase.IngestProduct(r.Context(), usecase.NewIngestProductReq(productID, images)); err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusAccepted, map[string]interface{}{
		"product_id": productID,
		"images":     len(images),
	})
}

// rebuildIndex
//
//	@Summary		Полное перестроение поискового индекса
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	RebuildResponse
//	@Router			/index/rebuild [post]
func (h *IngestHandler) rebuildIndex(w http.ResponseWriter, r *http.Request) {
	res, err := h.ingestUsecase.RebuildIndex(r.Context())
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, RebuildResponse{
		Rows:    res.Rows,
		Skipped: res.Skipped,
		TookMs:  res.Took.Milliseconds(),
	})
}
