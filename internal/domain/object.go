package domain

// Object описывает объект в S3-совместимом хранилище.
type Object struct {
	Bucket string
	Key    string
	// Передайте значение -1 в Size, если размер потока неизвестен
	// (внимание: при передаче значения -1 будет выделен большой объем памяти).
	Size        int64
	ContentType string
}

func NewObject(bucket string, key string, size int64, contentType string) *Object {
	return &Object{
		Bucket:      bucket,
		Key:         key,
		Size:        size,
		ContentType: contentType,
	}
}
