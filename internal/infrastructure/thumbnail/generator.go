package thumbnail

import (
	"bytes"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/disintegration/imaging"
	"github.com/jimlawless/whereami"
)

// Generator сжимает изображение до фиксированного размера без сохранения пропорций и кодирует в JPEG.
// Состояния не хранит, поэтому безопасен для параллельного использования.
type Generator struct {
	width   int
	height  int
	quality int
}

func NewGenerator(cfg *cfg.ThumbnailCfg) *Generator {
	return &Generator{
		width:   cfg.Width,
		height:  cfg.Height,
		quality: cfg.JPEGQuality,
	}
}

func (g *Generator) Generate(image []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(image))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.Wrap(err.Error(), e.ErrCorruptImage))
	}

	thumb := imaging.Resize(img, g.width, g.height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(g.quality)); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return buf.Bytes(), nil
}
