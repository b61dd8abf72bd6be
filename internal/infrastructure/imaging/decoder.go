package imaging

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/manvue/go-backend/pkg/e"
	_ "golang.org/x/image/webp"
)

// Decoder декодирует пользовательские загрузки в битмап.
// Поддерживаются jpeg, png, gif и webp; формат определяется по содержимому,
// а не по Content-Type.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeRGB возвращает e.ErrInvalidImage для пустых, битых или
// неподдерживаемых данных.
func (d *Decoder) DecodeRGB(data []byte) (image.Image, error) {
	const op = "Decoder.DecodeRGB"

	if len(data) == 0 {
		return nil, e.Wrap(op, e.ErrInvalidImage)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, e.Wrap(op, e.ErrInvalidImage)
	}

	return img, nil
}
