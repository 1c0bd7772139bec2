package image

import (
	"context"
	"expvar"
	"fmt"
	"time"

	"github.com/cshum/vipsbridge/internal/cache"
	"github.com/cshum/vipsbridge/internal/logger"
	"github.com/cshum/vipsbridge/internal/queue"
	"github.com/cshum/vipsbridge/vips"
)

var (
	queueSize       = expvar.NewInt("gauge_image_processor_queue_size")
	processedImages = expvar.NewMap("counter_labelmap_format_image_processor_processed_images")
)

// Options configures a Processor
type Options struct {
	Workers int
	// Timeout bounds the wait for one image; zero waits forever
	Timeout time.Duration
	// Vips is handed to vips.Startup
	Vips *vips.Config
	// Cache stores outputs; nil disables caching
	Cache cache.Provider
}

// Processor runs image tasks through libvips on a fixed set of workers
type Processor struct {
	queue   *queue.Queue
	cache   *cache.Auto
	timeout time.Duration
	log     *logger.Logger
	cancel  context.CancelFunc
}

type job struct {
	src  []byte
	task *Task
}

// New starts libvips, routes its warnings into log and starts the workers
func New(ctx context.Context, log *logger.Logger, opts Options) (*Processor, error) {
	if err := vips.Startup(opts.Vips); err != nil {
		return nil, err
	}
	vips.SetLogging(log.VipsHandler(), vips.LogLevelWarning)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Processor{
		queue:   queue.New(ctx, workers, taskProcessor),
		timeout: opts.Timeout,
		log:     log,
		cancel:  cancel,
	}
	if opts.Cache != nil {
		p.cache = &cache.Auto{Provider: opts.Cache}
	}

	go p.queue.Run()
	log.Infof("starting vips %s worker queue with %d workers", vips.Version, workers)

	return p, nil
}

// ProcessImage runs task on the encoded image src and returns the encoded result
func (p *Processor) ProcessImage(ctx context.Context, src []byte, task *Task) ([]byte, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	load := func(ctx context.Context, key string) ([]byte, error) {
		queueSize.Add(1)
		defer queueSize.Add(-1)

		result, err := p.queue.Process(ctx, &job{src: src, task: task})
		if err != nil {
			return nil, err
		}
		buf, ok := result.([]byte)
		if !ok {
			return nil, fmt.Errorf("error getting result")
		}

		processedImages.Add(task.OutputFormat.Extension(), 1)
		return buf, nil
	}

	if p.cache == nil {
		return load(ctx, "")
	}

	key := task.CacheKey(src)
	buf, err := p.cache.GetOrLoad(ctx, key, load)
	if err != nil {
		p.log.Debugw("processing failed", "key", key, "error", err)
		return nil, err
	}
	return buf, nil
}

// Shutdown stops the workers and the cache. libvips itself stays up.
func (p *Processor) Shutdown() {
	p.cancel()
	if p.cache != nil {
		p.cache.Provider.Shutdown()
	}
}

func taskProcessor(ctx context.Context, data interface{}) (interface{}, error) {
	j, ok := data.(*job)
	if !ok {
		return nil, fmt.Errorf("invalid data")
	}
	task := j.task

	img, err := vips.Thumbnail(j.src, task.Width, task.Height, task.Crop)
	if err != nil {
		return nil, err
	}
	defer func() { img.Close() }()

	// next swaps img for the result of a step, closing the old handle
	next := func(out *vips.Image, err error) error {
		if err != nil {
			return err
		}
		img.Close()
		img = out
		return nil
	}

	if task.ApplyBlur {
		if err := next(img.GaussBlur(float64(task.BlurAmount))); err != nil {
			return nil, err
		}
	}

	if task.ApplyGrayscale {
		if err := next(img.Colourspace(vips.InterpretationBW)); err != nil {
			return nil, err
		}
	}

	if err := next(img.StripMetadataWithComment(task.UserComment)); err != nil {
		return nil, err
	}

	return img.Export(task.ExportParams())
}
