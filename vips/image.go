package vips

// #include "bridge.h"
import "C"
import (
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

// Well-known metadata field names
const (
	MetaExifName        = "exif-data"
	MetaXMPName         = "xmp-data"
	MetaIPTCName        = "iptc-data"
	MetaICCName         = "icc-profile-data"
	MetaOrientation     = "orientation"
	MetaJpegThumbnail   = "jpeg-thumbnail-data"
	MetaUserComment     = "exif-ifd2-UserComment"
	exifFieldNamePrefix = "exif-"
)

// Image is a decoded image owned by the engine. The Image holds one engine
// reference, released by Close. Operations return new Images and leave the
// receiver untouched; callers close every Image they receive.
type Image struct {
	image *C.VipsImage
	lock  sync.Mutex
}

func newImageRef(vipsImage *C.VipsImage) *Image {
	return &Image{image: vipsImage}
}

// NewEmptyImage returns an image with no pixel data. Any pixel operation
// on it fails inside the engine.
func NewEmptyImage() *Image {
	return newImageRef(C.vips_image_new())
}

// LoadImage decodes buf with the engine loader matching its format.
// Decoding fails on warnings, and the result is rotated upright according
// to its orientation tag.
func LoadImage(buf []byte) (*Image, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyBuffer
	}
	loader, ok := findLoader(buf)
	if !ok {
		return nil, fmt.Errorf("%w: buffer is not in a known format", ErrUnsupportedFormat)
	}

	cLoader := C.CString(loader)
	defer C.free(unsafe.Pointer(cLoader))

	// the blob wrapping this copy frees it once the engine drops its last reference
	cBuf := C.CBytes(buf)

	var out *C.VipsImage
	if C.load_image_buffer(cLoader, cBuf, C.size_t(len(buf)), &out) != 0 {
		C.clear_image(&out)
		return nil, handleVipsError(loader)
	}
	return newImageRef(out), nil
}

// Thumbnail decodes and shrinks buf in one pass so the result fits
// width x height. When the aspect ratios differ, crop picks the region kept;
// InterestingNone keeps the whole image inside the box instead.
func Thumbnail(buf []byte, width, height int, crop Interesting) (*Image, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyBuffer
	}

	cBuf := C.CBytes(buf)

	var out *C.VipsImage
	if C.thumbnail_buffer(cBuf, C.size_t(len(buf)), &out, C.int(width), C.int(height), C.int(crop)) != 0 {
		C.clear_image(&out)
		return nil, handleVipsError("thumbnail_buffer")
	}
	return newImageRef(out), nil
}

// Close releases the engine reference. It is safe to call more than once.
func (r *Image) Close() {
	if r == nil {
		return
	}
	r.lock.Lock()
	C.clear_image(&r.image)
	r.image = nil
	r.lock.Unlock()
}

// Closed reports whether r no longer refers to an engine image
func (r *Image) Closed() bool {
	if r == nil {
		return true
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.image == nil
}

// apply runs an engine operation producing a new image from r
func (r *Image) apply(op string, fn func(in *C.VipsImage, out **C.VipsImage) C.int) (*Image, error) {
	if r == nil {
		return nil, ErrImageClosed
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return nil, ErrImageClosed
	}

	var out *C.VipsImage
	if fn(r.image, &out) != 0 {
		C.clear_image(&out)
		return nil, handleVipsError(op)
	}
	return newImageRef(out), nil
}

// Colourspace converts r to space
func (r *Image) Colourspace(space Interpretation) (*Image, error) {
	return r.apply("colourspace", func(in *C.VipsImage, out **C.VipsImage) C.int {
		return C.colourspace_image(in, out, C.int(space))
	})
}

// GaussBlur blurs r with a gaussian of the given sigma
func (r *Image) GaussBlur(sigma float64) (*Image, error) {
	return r.apply("gaussblur", func(in *C.VipsImage, out **C.VipsImage) C.int {
		return C.gaussblur_image(in, out, C.double(sigma))
	})
}

// Copy returns a new Image sharing r's pixels with its own metadata
func (r *Image) Copy() (*Image, error) {
	return r.apply("copy", func(in *C.VipsImage, out **C.VipsImage) C.int {
		return C.copy_image(in, out)
	})
}

// StripMetadataWithComment returns a copy of r without EXIF, XMP, IPTC,
// ICC profile, orientation or embedded thumbnail, and without any field
// prefixed "exif-", carrying comment as its only EXIF user comment.
func (r *Image) StripMetadataWithComment(comment string) (*Image, error) {
	out, err := r.Copy()
	if err != nil {
		return nil, err
	}

	for _, name := range []string{MetaExifName, MetaXMPName, MetaIPTCName, MetaICCName, MetaOrientation, MetaJpegThumbnail} {
		out.removeField(name)
	}
	for _, name := range out.GetFields() {
		if strings.HasPrefix(name, exifFieldNamePrefix) {
			out.removeField(name)
		}
	}

	// written last, so nothing above can strip it
	if err := out.SetString(MetaUserComment, comment); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

// Width returns the width in pixels, or 0 for a closed image
func (r *Image) Width() int {
	return r.intProperty(func(in *C.VipsImage) C.int { return C.vips_image_get_width(in) })
}

// Height returns the height in pixels, or 0 for a closed image
func (r *Image) Height() int {
	return r.intProperty(func(in *C.VipsImage) C.int { return C.vips_image_get_height(in) })
}

// Bands returns the number of bands, or 0 for a closed image
func (r *Image) Bands() int {
	return r.intProperty(func(in *C.VipsImage) C.int { return C.vips_image_get_bands(in) })
}

// Interpretation returns the colourspace r's pixels are tagged with
func (r *Image) Interpretation() Interpretation {
	return Interpretation(r.intProperty(func(in *C.VipsImage) C.int {
		return C.int(C.vips_image_get_interpretation(in))
	}))
}

// Orientation returns the EXIF orientation, or 0 when there is none
func (r *Image) Orientation() int {
	v, err := r.GetInt(MetaOrientation)
	if err != nil {
		return 0
	}
	return v
}

// HasICCProfile reports whether r carries an ICC profile
func (r *Image) HasICCProfile() bool {
	return r.HasField(MetaICCName)
}

func (r *Image) intProperty(fn func(in *C.VipsImage) C.int) int {
	if r == nil {
		return 0
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return 0
	}
	return int(fn(r.image))
}

// HasField reports whether r has a metadata field called name
func (r *Image) HasField(name string) bool {
	return r.intProperty(func(in *C.VipsImage) C.int {
		cName := C.CString(name)
		defer C.free(unsafe.Pointer(cName))
		return C.has_field(in, cName)
	}) != 0
}

// GetFields returns the names of all metadata fields on r
func (r *Image) GetFields() []string {
	if r == nil {
		return nil
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return nil
	}

	fields := C.vips_image_get_fields(r.image)
	defer C.g_strfreev(fields)

	var names []string
	for p := fields; *p != nil; p = (**C.gchar)(unsafe.Add(unsafe.Pointer(p), unsafe.Sizeof(*p))) {
		names = append(names, C.GoString((*C.char)(unsafe.Pointer(*p))))
	}
	return names
}

// GetString returns the string field name
func (r *Image) GetString(name string) (string, error) {
	if r == nil {
		return "", ErrImageClosed
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return "", ErrImageClosed
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var out *C.char
	if C.get_string_field(r.image, cName, &out) != 0 {
		return "", handleVipsError("get_string")
	}
	return C.GoString(out), nil
}

// GetInt returns the integer field name
func (r *Image) GetInt(name string) (int, error) {
	if r == nil {
		return 0, ErrImageClosed
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return 0, ErrImageClosed
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var out C.int
	if C.get_int_field(r.image, cName, &out) != 0 {
		return 0, handleVipsError("get_int")
	}
	return int(out), nil
}

// SetString sets the string field name on r. Metadata is per handle, so
// callers that did not create r should work on a Copy.
func (r *Image) SetString(name, value string) error {
	if r == nil {
		return ErrImageClosed
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return ErrImageClosed
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	cValue := C.CString(value)
	defer C.free(unsafe.Pointer(cValue))

	C.set_string_field(r.image, cName, cValue)
	return nil
}

// SetInt sets the integer field name on r
func (r *Image) SetInt(name string, value int) error {
	if r == nil {
		return ErrImageClosed
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return ErrImageClosed
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	C.set_int_field(r.image, cName, C.int(value))
	return nil
}

func (r *Image) removeField(name string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.image == nil {
		return
	}

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	C.remove_field(r.image, cName)
}
