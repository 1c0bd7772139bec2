package vips

import (
	"bytes"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func loadTestImage(t *testing.T, width, height int) *Image {
	img, err := LoadImage(createTestJPEG(t, width, height))
	require.NoError(t, err)
	return img
}

func TestLoadImage(t *testing.T) {
	t.Run("decodes jpeg", func(t *testing.T) {
		img := loadTestImage(t, 64, 48)
		defer img.Close()

		assert.Equal(t, 64, img.Width())
		assert.Equal(t, 48, img.Height())
		assert.Equal(t, 3, img.Bands())
	})

	t.Run("decodes png", func(t *testing.T) {
		img, err := LoadImage(createTestPNG(t, 20, 30))
		require.NoError(t, err)
		defer img.Close()

		assert.Equal(t, 20, img.Width())
		assert.Equal(t, 30, img.Height())
	})

	t.Run("leaves the input buffer untouched", func(t *testing.T) {
		buf := createTestJPEG(t, 32, 32)
		original := append([]byte(nil), buf...)

		img, err := LoadImage(buf)
		require.NoError(t, err)
		_, err = img.JpegsaveBuffer(false)
		require.NoError(t, err)
		img.Close()

		assert.Equal(t, original, buf)
	})

	t.Run("errors on an empty buffer", func(t *testing.T) {
		img, err := LoadImage(nil)
		assert.ErrorIs(t, err, ErrEmptyBuffer)
		assert.Nil(t, img)
	})

	t.Run("errors on an unknown format", func(t *testing.T) {
		img, err := LoadImage(make([]byte, 5))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Nil(t, img)
	})
}

func TestThumbnail(t *testing.T) {
	buf := createTestJPEG(t, 200, 100)

	t.Run("crops to the exact box", func(t *testing.T) {
		img, err := Thumbnail(buf, 100, 100, InterestingCentre)
		require.NoError(t, err)
		defer img.Close()

		assert.Equal(t, 100, img.Width())
		assert.Equal(t, 100, img.Height())
	})

	t.Run("crops by attention", func(t *testing.T) {
		img, err := Thumbnail(buf, 50, 80, InterestingAttention)
		require.NoError(t, err)
		defer img.Close()

		assert.Equal(t, 50, img.Width())
		assert.Equal(t, 80, img.Height())
	})

	t.Run("fits inside the box without crop", func(t *testing.T) {
		img, err := Thumbnail(buf, 100, 100, InterestingNone)
		require.NoError(t, err)
		defer img.Close()

		assert.Equal(t, 100, img.Width())
		assert.Equal(t, 50, img.Height())
	})

	t.Run("never exceeds the box", func(t *testing.T) {
		for _, crop := range []Interesting{InterestingNone, InterestingCentre, InterestingEntropy} {
			img, err := Thumbnail(buf, 70, 30, crop)
			require.NoError(t, err)
			assert.LessOrEqual(t, img.Width(), 70, crop.String())
			assert.LessOrEqual(t, img.Height(), 30, crop.String())
			assert.True(t, img.Width() == 70 || img.Height() == 30, crop.String())
			img.Close()
		}
	})

	t.Run("errors on an empty buffer", func(t *testing.T) {
		_, err := Thumbnail(nil, 100, 100, InterestingCentre)
		assert.ErrorIs(t, err, ErrEmptyBuffer)
	})

	t.Run("errors on an invalid image", func(t *testing.T) {
		img, err := Thumbnail(make([]byte, 5), 100, 100, InterestingCentre)
		require.Error(t, err)
		assert.Nil(t, img)
		assert.True(t, strings.HasPrefix(err.Error(), "vips: thumbnail_buffer"), err.Error())
	})
}

func TestColourspace(t *testing.T) {
	img := loadTestImage(t, 40, 40)
	defer img.Close()

	grey, err := img.Colourspace(InterpretationBW)
	require.NoError(t, err)
	defer grey.Close()

	assert.Equal(t, 1, grey.Bands())
	assert.Equal(t, InterpretationBW, grey.Interpretation())
	assert.Equal(t, 3, img.Bands(), "input should be untouched")

	t.Run("errors when given an invalid image", func(t *testing.T) {
		empty := NewEmptyImage()
		defer empty.Close()

		out, err := empty.Colourspace(InterpretationBW)
		assert.Error(t, err)
		assert.Nil(t, out)
	})
}

func TestGaussBlur(t *testing.T) {
	img := loadTestImage(t, 40, 30)
	defer img.Close()

	blurred, err := img.GaussBlur(5)
	require.NoError(t, err)
	defer blurred.Close()

	assert.Equal(t, 40, blurred.Width())
	assert.Equal(t, 30, blurred.Height())

	t.Run("errors when given an invalid image", func(t *testing.T) {
		empty := NewEmptyImage()
		defer empty.Close()

		out, err := empty.GaussBlur(5)
		assert.Error(t, err)
		assert.Nil(t, out)
	})
}

func TestClosedImage(t *testing.T) {
	img := loadTestImage(t, 10, 10)
	img.Close()
	img.Close()
	assert.True(t, img.Closed())

	var nilImage *Image
	nilImage.Close()
	assert.True(t, nilImage.Closed())

	for _, r := range []*Image{img, nilImage} {
		out, err := r.GaussBlur(2)
		assert.ErrorIs(t, err, ErrImageClosed)
		assert.Nil(t, out)

		out, err = r.Colourspace(InterpretationBW)
		assert.ErrorIs(t, err, ErrImageClosed)
		assert.Nil(t, out)

		out, err = r.StripMetadataWithComment("test")
		assert.ErrorIs(t, err, ErrImageClosed)
		assert.Nil(t, out)

		buf, err := r.JpegsaveBuffer(false)
		assert.ErrorIs(t, err, ErrImageClosed)
		assert.Nil(t, buf)

		assert.Equal(t, 0, r.Width())
		assert.Nil(t, r.GetFields())
		assert.ErrorIs(t, r.SetString("a", "b"), ErrImageClosed)
	}
}

func TestExport(t *testing.T) {
	img, err := Thumbnail(createTestJPEG(t, 300, 200), 120, 80, InterestingCentre)
	require.NoError(t, err)
	defer img.Close()

	t.Run("saves jpeg", func(t *testing.T) {
		buf, err := img.JpegsaveBuffer(false)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xff, 0xd8}, buf[:2])

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(buf))
		require.NoError(t, err)
		assert.Equal(t, 120, cfg.Width)
		assert.Equal(t, 80, cfg.Height)
	})

	t.Run("saves webp", func(t *testing.T) {
		buf, err := img.WebpsaveBuffer(false)
		require.NoError(t, err)
		assert.Equal(t, "RIFF", string(buf[:4]))

		cfg, err := webp.DecodeConfig(bytes.NewReader(buf))
		require.NoError(t, err)
		assert.Equal(t, 120, cfg.Width)
		assert.Equal(t, 80, cfg.Height)
	})

	t.Run("is deterministic", func(t *testing.T) {
		for _, preset := range ExportPresets {
			first, err := img.Export(preset)
			require.NoError(t, err)
			second, err := img.Export(preset)
			require.NoError(t, err)
			assert.Equal(t, first, second, string(preset.Format))
		}
	})

	t.Run("round trips a loaded image", func(t *testing.T) {
		buf, err := img.JpegsaveBuffer(true)
		require.NoError(t, err)

		reloaded, err := LoadImage(buf)
		require.NoError(t, err)
		defer reloaded.Close()
		assert.Equal(t, img.Width(), reloaded.Width())
		assert.Equal(t, img.Height(), reloaded.Height())
	})

	t.Run("strips metadata", func(t *testing.T) {
		commented, err := img.StripMetadataWithComment("Test")
		require.NoError(t, err)
		defer commented.Close()

		buf, err := commented.JpegsaveBuffer(true)
		require.NoError(t, err)

		reloaded, err := LoadImage(buf)
		require.NoError(t, err)
		defer reloaded.Close()
		assert.False(t, reloaded.HasField(MetaUserComment))
		assert.False(t, reloaded.HasField(MetaExifName))
	})

	t.Run("errors on an unsupported format", func(t *testing.T) {
		_, err := img.Export(ExportParams{Format: ImageTypePNG})
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("errors on an invalid image", func(t *testing.T) {
		empty := NewEmptyImage()
		defer empty.Close()

		_, err := empty.JpegsaveBuffer(false)
		assert.Error(t, err)
		_, err = empty.WebpsaveBuffer(false)
		assert.Error(t, err)
	})
}

func TestExportPresets(t *testing.T) {
	assert.True(t, JpegExportPreset.Interlace)
	assert.True(t, JpegExportPreset.OptimizeCoding)
	assert.False(t, JpegExportPreset.StripMetadata)
	assert.True(t, StrippedJpegExportPreset.StripMetadata)
	assert.True(t, StrippedJpegExportPreset.Interlace)
	assert.False(t, WebpExportPreset.StripMetadata)
	assert.True(t, StrippedWebpExportPreset.StripMetadata)
	assert.Len(t, ExportPresets, 4)
}

func TestStripMetadataWithComment(t *testing.T) {
	img := loadTestImage(t, 30, 30)
	defer img.Close()

	require.NoError(t, img.SetString("exif-ifd0-Make", "Test Camera"))
	require.NoError(t, img.SetString("exif-ifd0-Artist", "Someone"))
	require.NoError(t, img.SetString(MetaXMPName, "<xmp/>"))
	require.NoError(t, img.SetInt(MetaOrientation, 6))
	require.NoError(t, img.SetString("custom-field", "kept"))

	stripped, err := img.StripMetadataWithComment("Test")
	require.NoError(t, err)
	defer stripped.Close()

	for _, field := range stripped.GetFields() {
		if strings.HasPrefix(field, "exif-") {
			assert.Equal(t, MetaUserComment, field)
		}
	}
	for _, field := range []string{MetaExifName, MetaXMPName, MetaIPTCName, MetaICCName, MetaOrientation, MetaJpegThumbnail} {
		assert.False(t, stripped.HasField(field), field)
	}

	comment, err := stripped.GetString(MetaUserComment)
	require.NoError(t, err)
	assert.Equal(t, "Test", comment)
	assert.Equal(t, 0, stripped.Orientation())

	kept, err := stripped.GetString("custom-field")
	require.NoError(t, err)
	assert.Equal(t, "kept", kept)

	// the input handle keeps its metadata
	camera, err := img.GetString("exif-ifd0-Make")
	require.NoError(t, err)
	assert.Equal(t, "Test Camera", camera)
	assert.Equal(t, 6, img.Orientation())
}

func TestMetadataErrors(t *testing.T) {
	img := loadTestImage(t, 10, 10)
	defer img.Close()

	_, err := img.GetString("non-existent-field")
	assert.Error(t, err)
	_, err = img.GetInt("non-existent-field")
	assert.Error(t, err)
	assert.False(t, img.HasField("non-existent-field"))
	assert.False(t, img.HasICCProfile())
}
