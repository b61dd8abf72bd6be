package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Внутренние ошибки с векторами и индексом
	ErrEmptyVectors         = fmt.Errorf("empty vectors")
	ErrVectorDimMismatch    = fmt.Errorf("vector dimension mismatch")
	ErrRowMisaligned        = fmt.Errorf("index row misaligned with metadata")
	ErrZeroNormVector       = fmt.Errorf("vector has zero norm")
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect env variable")

	// Ошибки визуального поиска (сервисный уровень, 503)
	ErrEmbeddingUnavailable = fmt.Errorf("embedding model unavailable")
	ErrIndexUnavailable     = fmt.Errorf("vector index unavailable")

	// 400 Bad Request
	ErrInvalidImage         = fmt.Errorf("invalid or unsupported image")
	ErrNoImage              = fmt.Errorf("no image provided")
	ErrInvalidTopK          = fmt.Errorf("top_k must be positive")
	ErrInvalidMaxOutfits    = fmt.Errorf("max_outfits must be positive")
	ErrProductNotFound      = fmt.Errorf("product not found")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrMissingFields        = fmt.Errorf("missing required fields")
	ErrFileTooLarge         = fmt.Errorf("file too large")
	ErrStatusBadRequest     = fmt.Errorf("bad request")

	// 500
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
