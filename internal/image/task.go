package image

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/cshum/vipsbridge/vips"
)

// Task is an image processing task
type Task struct {
	Width          int
	Height         int
	Crop           vips.Interesting
	ApplyBlur      bool
	BlurAmount     int
	ApplyGrayscale bool
	UserComment    string
	OutputFormat   OutputFormat
	StripMetadata  bool
}

// OutputFormat is the image format to output to
type OutputFormat int

const (
	// JPEG represents the JPEG format
	JPEG OutputFormat = iota
	// WebP represents the WebP format
	WebP
)

// ParseOutputFormat parses "jpeg", "jpg" or "webp"
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch name {
	case "jpeg", "jpg":
		return JPEG, nil
	case "webp":
		return WebP, nil
	}
	return JPEG, fmt.Errorf("unknown output format %q", name)
}

// ImageType returns the engine image type for f
func (f OutputFormat) ImageType() vips.ImageType {
	if f == WebP {
		return vips.ImageTypeWEBP
	}
	return vips.ImageTypeJPEG
}

// Extension returns the file extension for f, without the dot
func (f OutputFormat) Extension() string {
	if f == WebP {
		return "webp"
	}
	return "jpg"
}

// NewTask creates a new image processing task, cropping from the centre
func NewTask(width int, height int, userComment string, format OutputFormat) *Task {
	return &Task{
		Width:        width,
		Height:       height,
		Crop:         vips.InterestingCentre,
		UserComment:  userComment,
		OutputFormat: format,
	}
}

// Blur applies gaussian blur to the image
func (t *Task) Blur(amount int) *Task {
	t.ApplyBlur = true
	t.BlurAmount = amount
	return t
}

// Grayscale turns the image into grayscale
func (t *Task) Grayscale() *Task {
	t.ApplyGrayscale = true
	return t
}

// CropBy sets the strategy used when the aspect ratio changes
func (t *Task) CropBy(crop vips.Interesting) *Task {
	t.Crop = crop
	return t
}

// Strip drops all metadata on export, the user comment included
func (t *Task) Strip() *Task {
	t.StripMetadata = true
	return t
}

// ExportParams returns the export preset for the task's format
func (t *Task) ExportParams() vips.ExportParams {
	if t.OutputFormat == WebP {
		return vips.WebpExportPreset.WithStrip(t.StripMetadata)
	}
	return vips.JpegExportPreset.WithStrip(t.StripMetadata)
}

// CacheKey identifies the output of running t on src
func (t *Task) CacheKey(src []byte) string {
	d := xxhash.New()
	_, _ = d.Write(src)
	_, _ = fmt.Fprintf(d, "|%d|%d|%d|%t|%d|%t|%q|%d|%t",
		t.Width, t.Height, t.Crop, t.ApplyBlur, t.BlurAmount,
		t.ApplyGrayscale, t.UserComment, t.OutputFormat, t.StripMetadata)
	return fmt.Sprintf("%016x.%s", d.Sum64(), t.OutputFormat.Extension())
}
