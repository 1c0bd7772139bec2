package vips

// #include "bridge.h"
import "C"
import (
	"fmt"
	"unsafe"
)

// Interesting is the strategy thumbnailing uses to pick the region kept
// when the source aspect ratio differs from the requested box
type Interesting int

// Interesting values
const (
	InterestingNone      Interesting = C.VIPS_INTERESTING_NONE
	InterestingCentre    Interesting = C.VIPS_INTERESTING_CENTRE
	InterestingEntropy   Interesting = C.VIPS_INTERESTING_ENTROPY
	InterestingAttention Interesting = C.VIPS_INTERESTING_ATTENTION
	InterestingLow       Interesting = C.VIPS_INTERESTING_LOW
	InterestingHigh      Interesting = C.VIPS_INTERESTING_HIGH
)

// Interpretation is the colourspace an image's pixels are in
type Interpretation int

// Interpretation values
const (
	InterpretationMultiband Interpretation = C.VIPS_INTERPRETATION_MULTIBAND
	InterpretationBW        Interpretation = C.VIPS_INTERPRETATION_B_W
	InterpretationCMYK      Interpretation = C.VIPS_INTERPRETATION_CMYK
	InterpretationLab       Interpretation = C.VIPS_INTERPRETATION_LAB
	InterpretationRGB       Interpretation = C.VIPS_INTERPRETATION_RGB
	InterpretationSRGB      Interpretation = C.VIPS_INTERPRETATION_sRGB
	InterpretationScRGB     Interpretation = C.VIPS_INTERPRETATION_scRGB
	InterpretationGrey16    Interpretation = C.VIPS_INTERPRETATION_GREY16
	InterpretationRGB16     Interpretation = C.VIPS_INTERPRETATION_RGB16
	InterpretationHSV       Interpretation = C.VIPS_INTERPRETATION_HSV
	InterpretationXYZ       Interpretation = C.VIPS_INTERPRETATION_XYZ
)

// ParseInteresting looks nick ("centre", "attention", ...) up in the engine's enum table
func ParseInteresting(nick string) (Interesting, error) {
	cNick := C.CString(nick)
	defer C.free(unsafe.Pointer(cNick))

	v := C.interesting_from_nick(cNick)
	if v < 0 {
		C.vips_error_clear()
		return InterestingNone, fmt.Errorf("vips: unknown crop strategy %q", nick)
	}
	return Interesting(v), nil
}

// ParseInterpretation looks nick ("srgb", "b-w", ...) up in the engine's enum table
func ParseInterpretation(nick string) (Interpretation, error) {
	cNick := C.CString(nick)
	defer C.free(unsafe.Pointer(cNick))

	v := C.interpretation_from_nick(cNick)
	if v < 0 {
		C.vips_error_clear()
		return InterpretationMultiband, fmt.Errorf("vips: unknown colourspace %q", nick)
	}
	return Interpretation(v), nil
}

func (i Interesting) String() string {
	return C.GoString(C.interesting_nick(C.int(i)))
}

func (i Interpretation) String() string {
	return C.GoString(C.interpretation_nick(C.int(i)))
}
