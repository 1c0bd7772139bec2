package vips

// #include "bridge.h"
import "C"
import (
	"runtime"
	"strings"
	"unsafe"
)

// ImageType is an encoded image format, named after the engine loader that reads it
type ImageType string

// ImageType values the façade knows a MIME type for
const (
	ImageTypeUnknown ImageType = ""
	ImageTypeJPEG    ImageType = "jpeg"
	ImageTypePNG     ImageType = "png"
	ImageTypeWEBP    ImageType = "webp"
	ImageTypeGIF     ImageType = "gif"
	ImageTypeTIFF    ImageType = "tiff"
	ImageTypeHEIF    ImageType = "heif"
	ImageTypeAVIF    ImageType = "avif"
	ImageTypeSVG     ImageType = "svg"
	ImageTypePDF     ImageType = "pdf"
	ImageTypeJXL     ImageType = "jxl"
	ImageTypeJP2K    ImageType = "jp2k"
)

var mimeTypes = map[ImageType]string{
	ImageTypeJPEG: "image/jpeg",
	ImageTypePNG:  "image/png",
	ImageTypeWEBP: "image/webp",
	ImageTypeGIF:  "image/gif",
	ImageTypeTIFF: "image/tiff",
	ImageTypeHEIF: "image/heif",
	ImageTypeAVIF: "image/avif",
	ImageTypeSVG:  "image/svg+xml",
	ImageTypePDF:  "application/pdf",
	ImageTypeJXL:  "image/jxl",
	ImageTypeJP2K: "image/jp2",
}

// MimeType returns the MIME type of t and whether one is known
func (t ImageType) MimeType() (string, bool) {
	m, ok := mimeTypes[t]
	return m, ok
}

// DetermineImageType sniffs buf with the engine's loaders
func DetermineImageType(buf []byte) ImageType {
	loader, ok := findLoader(buf)
	if !ok {
		return ImageTypeUnknown
	}
	return imageTypeFromLoader(loader)
}

// findLoader returns the nickname of the engine loader able to read buf,
// e.g. "jpegload_buffer"
func findLoader(buf []byte) (string, bool) {
	if len(buf) == 0 {
		return "", false
	}

	typeName := C.find_load_buffer(unsafe.Pointer(&buf[0]), C.size_t(len(buf)))
	runtime.KeepAlive(buf)
	if typeName == nil {
		C.vips_error_clear()
		return "", false
	}

	nick := C.operation_nickname(typeName)
	if nick == nil {
		return "", false
	}
	return C.GoString(nick), true
}

// imageTypeFromLoader maps "jpegload_buffer" to ImageTypeJPEG
func imageTypeFromLoader(loader string) ImageType {
	name := loader
	if i := strings.Index(name, "load"); i > 0 {
		name = name[:i]
	}
	// heifload reads AVIF as well; it reports as heif
	return ImageType(name)
}
