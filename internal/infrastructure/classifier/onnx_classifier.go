package classifier

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/DRSN-tech/photo-pipeline/internal/cfg"
	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/DRSN-tech/photo-pipeline/pkg/logger"
	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXClassifier — классификатор изображений на ONNX Runtime (MobileNet-совместимая модель).
// Сессия создаётся один раз в Warmup; Classify сериализует вызовы, так как тензоры переиспользуются.
type ONNXClassifier struct {
	cfg    *cfg.ClassifierCfg
	logger logger.Logger

	mu      sync.Mutex
	ready   bool
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string

	closeOnce sync.Once
}

func NewONNXClassifier(cfg *cfg.ClassifierCfg, logger logger.Logger) *ONNXClassifier {
	return &ONNXClassifier{cfg: cfg, logger: logger}
}

// Warmup загружает метки и модель и выполняет одно пробное предсказание. Повторный вызов ничего не делает.
func (c *ONNXClassifier) Warmup(ctx context.Context) error {
	const op = "ONNXClassifier.Warmup"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return nil
	}

	start := time.Now()

	labels, err := c.loadLabels()
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := ctx.Err(); err != nil {
		return e.Wrap(op, err)
	}

	ort.SetSharedLibraryPath(c.cfg.SharedLibraryPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return e.Wrap(op, fmt.Errorf("init onnx: %w", err))
		}
	}

	size := int64(c.cfg.InputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 3, size, size), make([]float32, 3*size*size))
	if err != nil {
		return e.Wrap(op, fmt.Errorf("create input tensor: %w", err))
	}

	output, err := ort.NewTensor(ort.NewShape(1, int64(c.cfg.NumClasses)), make([]float32, c.cfg.NumClasses))
	if err != nil {
		input.Destroy()
		return e.Wrap(op, fmt.Errorf("create output tensor: %w", err))
	}

	session, err := ort.NewAdvancedSession(
		c.cfg.ModelPath,
		[]string{c.cfg.InputName},
		[]string{c.cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return e.Wrap(op, fmt.Errorf("create session: %w", err))
	}

	// Пробный прогон на нулевом входе: первая инференция самая медленная
	if err := session.Run(); err != nil {
		session.Destroy()
		input.Destroy()
		output.Destroy()
		return e.Wrap(op, fmt.Errorf("warmup inference: %w", err))
	}

	c.session = session
	c.input = input
	c.output = output
	c.labels = labels
	c.ready = true

	c.logger.Infof("classifier warmed up, model=%s classes=%d took=%s", c.cfg.ModelPath, len(labels), time.Since(start))
	return nil
}

// Classify возвращает TopK меток для изображения в порядке убывания вероятности.
func (c *ONNXClassifier) Classify(ctx context.Context, image []byte) ([]domain.Label, error) {
	const op = "ONNXClassifier.Classify"

	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrCorruptImage, err))
	}

	tensor := Preprocess(img, c.cfg.InputSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return nil, e.Wrap(op, e.ErrClassifierNotReady)
	}

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	copy(c.input.GetData(), tensor)

	if err := c.session.Run(); err != nil {
		return nil, e.Wrap(op, fmt.Errorf("inference: %w", err))
	}

	probs := ToProbabilities(c.output.GetData())
	if err := checkFinite(probs); err != nil {
		return nil, e.Wrap(op, err)
	}

	return TopK(probs, c.labels, c.cfg.TopK), nil
}

// Close освобождает сессию и окружение ONNX Runtime.
func (c *ONNXClassifier) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if !c.ready {
			return
		}

		c.ready = false
		c.session.Destroy()
		c.input.Destroy()
		c.output.Destroy()
		ort.DestroyEnvironment()
	})

	return nil
}

func (c *ONNXClassifier) loadLabels() ([]string, error) {
	f, err := os.Open(c.cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	labels, err := ParseLabels(f)
	if err != nil {
		return nil, err
	}

	if len(labels) != c.cfg.NumClasses {
		return nil, fmt.Errorf("labels file %s has %d entries, model has %d classes", c.cfg.LabelsPath, len(labels), c.cfg.NumClasses)
	}

	return labels, nil
}
