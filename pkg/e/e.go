package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
	ErrInvalidThreshold     = fmt.Errorf("threshold must be in range (0, 1)")
	ErrUnknownMetadataMode  = fmt.Errorf("unknown thumbnail metadata mode")

	// Хранилище
	ErrNotFound             = fmt.Errorf("resource not found")
	ErrUnknownNamespace     = fmt.Errorf("unknown namespace")
	ErrUnknownMetadataField = fmt.Errorf("unknown metadata field")
	ErrInvalidFieldValue    = fmt.Errorf("invalid metadata field value")

	// Конвейер классификации
	ErrCorruptImage       = fmt.Errorf("image cannot be decoded")
	ErrClassifierNotReady = fmt.Errorf("classifier is not warmed up")
	ErrEmptyJobToken      = fmt.Errorf("job token is empty")
	ErrPhotoTooLarge      = fmt.Errorf("photo exceeds processing limit")
	ErrInvalidModelOutput = fmt.Errorf("model returned non-finite probability")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrMissingFields        = fmt.Errorf("request body needs a \"file\", a \"businessId\" and a \"caption\"")
	ErrMissingFile          = fmt.Errorf("missing file: form field key should be \"file\"")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrInvalidFormField     = fmt.Errorf("invalid form field")

	// 413
	ErrFileTooLarge = fmt.Errorf("file too large")

	// 500
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
