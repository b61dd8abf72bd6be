package domain

// Image — снимок изображения для blob-хранилища. Байты всегда целиком
// в памяти: источник — multipart-загрузка с жёстким потолком размера,
// потоковая передача здесь не нужна.
type Image struct {
	ID          string // uuid
	Bucket      string
	ObjectKey   string
	Bytes       []byte
	ContentType string // определяется по содержимому, например "image/jpeg"
}

func NewImage(id string, bucket string, objectKey string, data []byte, contentType string) *Image {
	return &Image{
		ID:          id,
		Bucket:      bucket,
		ObjectKey:   objectKey,
		Bytes:       data,
		ContentType: contentType,
	}
}
