package vips

// #include "bridge.h"
import "C"
import (
	"fmt"
	"unsafe"
)

const defaultQuality = 75

// ExportParams configures an encode. Fields that do not apply to Format
// are ignored.
type ExportParams struct {
	Format         ImageType
	Quality        int
	StripMetadata  bool
	Interlace      bool // JPEG only
	OptimizeCoding bool // JPEG only
	Lossless       bool // WebP only
}

// Named export presets. Progressive layout and optimized entropy coding are
// always on for JPEG; the Stripped variants also drop all metadata.
var (
	JpegExportPreset = ExportParams{
		Format:         ImageTypeJPEG,
		Quality:        defaultQuality,
		Interlace:      true,
		OptimizeCoding: true,
	}
	StrippedJpegExportPreset = JpegExportPreset.WithStrip(true)

	WebpExportPreset = ExportParams{
		Format:  ImageTypeWEBP,
		Quality: defaultQuality,
	}
	StrippedWebpExportPreset = WebpExportPreset.WithStrip(true)
)

// ExportPresets indexes the presets by name, for configuration files and flags
var ExportPresets = map[string]ExportParams{
	"jpeg":          JpegExportPreset,
	"jpeg-stripped": StrippedJpegExportPreset,
	"webp":          WebpExportPreset,
	"webp-stripped": StrippedWebpExportPreset,
}

// savers maps formats to the engine operation that encodes them
var savers = map[ImageType]string{
	ImageTypeJPEG: "jpegsave_buffer",
	ImageTypeWEBP: "webpsave_buffer",
}

// WithStrip returns a copy of p with metadata stripping set to strip
func (p ExportParams) WithStrip(strip bool) ExportParams {
	p.StripMetadata = strip
	return p
}

// JpegsaveBuffer encodes r with JpegExportPreset, optionally stripping metadata
func (r *Image) JpegsaveBuffer(strip bool) ([]byte, error) {
	return r.Export(JpegExportPreset.WithStrip(strip))
}

// WebpsaveBuffer encodes r with WebpExportPreset, optionally stripping metadata
func (r *Image) WebpsaveBuffer(strip bool) ([]byte, error) {
	return r.Export(WebpExportPreset.WithStrip(strip))
}

// Export encodes r as described by params. The returned bytes belong to
// the caller; the engine allocation is freed before Export returns.
func (r *Image) Export(params ExportParams) ([]byte, error) {
	saver, ok := savers[params.Format]
	if !ok || !HasOperation(saver) {
		return nil, fmt.Errorf("%w: cannot save %q", ErrUnsupportedFormat, params.Format)
	}
	if r == nil {
		return nil, ErrImageClosed
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return nil, ErrImageClosed
	}

	quality := params.Quality
	if quality <= 0 {
		quality = defaultQuality
	}

	var ptr unsafe.Pointer
	var length C.size_t
	var code C.int
	switch params.Format {
	case ImageTypeJPEG:
		code = C.jpegsave_buffer(r.image, &ptr, &length,
			toCBool(params.StripMetadata), C.int(quality),
			toCBool(params.Interlace), toCBool(params.OptimizeCoding))
	case ImageTypeWEBP:
		code = C.webpsave_buffer(r.image, &ptr, &length,
			toCBool(params.StripMetadata), C.int(quality), toCBool(params.Lossless))
	}
	if code != 0 {
		return nil, handleVipsError(saver)
	}

	buf := C.GoBytes(ptr, C.int(length))
	C.g_free(C.gpointer(ptr))
	return buf, nil
}

func toCBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
