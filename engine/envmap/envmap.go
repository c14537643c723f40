// Package envmap loads equirectangular OpenEXR environment maps and pre-filters them into a
// roughness mip chain for reflection lookups.
package envmap

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/half"
)

// ErrEmptyImage is returned when the source image has no pixels.
var ErrEmptyImage = errors.New("envmap: image has no pixels")

// channels is the number of color channels kept per texel.
const channels = 4

// Map is a latitude-longitude environment map with a box-filtered mip chain.
// Level 0 is the source resolution. Every following level halves both dimensions.
type Map struct {
	levels []*exr.EnvMapImage
}

// Load decodes an OpenEXR file and builds its mip chain.
//
// Parameters:
//   - path: the .exr file path
//   - options: functional options to configure the chain
//
// Returns:
//   - *Map: the environment map
//   - error: the decode error, or ErrEmptyImage
func Load(path string, options ...MapBuilderOption) (*Map, error) {
	img, err := exr.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("envmap: failed to decode %q: %w", path, err)
	}
	return FromRGBA(img, options...)
}

// FromRGBA builds an environment map from a decoded float image.
//
// Parameters:
//   - img: the decoded image, laid out as an equirectangular projection
//   - options: functional options to configure the chain
//
// Returns:
//   - *Map: the environment map
//   - error: ErrEmptyImage when img has no pixels
func FromRGBA(img *exr.RGBAImage, options ...MapBuilderOption) (*Map, error) {
	if img == nil || img.Rect.Empty() {
		return nil, ErrEmptyImage
	}
	cfg := &mapConfig{maxLevels: 0}
	for _, opt := range options {
		opt(cfg)
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	base := exr.NewEnvMapImage(exr.EnvMapLatLong, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.RGBA(img.Rect.Min.X+x, img.Rect.Min.Y+y)
			base.Set(x, y, exr.RGBA{R: r, G: g, B: b, A: a})
		}
	}

	m := &Map{levels: []*exr.EnvMapImage{base}}
	for {
		prev := m.levels[len(m.levels)-1]
		if prev.Width == 1 && prev.Height == 1 {
			break
		}
		if cfg.maxLevels > 0 && len(m.levels) >= cfg.maxLevels {
			break
		}
		m.levels = append(m.levels, downsample(prev))
	}

	common.Logger().Debug("envmap built", "width", w, "height", h, "levels", len(m.levels))
	return m, nil
}

// downsample halves an image per channel with the OpenEXR 2x2 box filter.
func downsample(src *exr.EnvMapImage) *exr.EnvMapImage {
	dw, dh := max(src.Width/2, 1), max(src.Height/2, 1)
	dst := exr.NewEnvMapImage(src.Type, dw, dh)

	srcPlane := make([]half.Half, src.Width*src.Height)
	dstPlane := make([]half.Half, dw*dh)
	for c := 0; c < channels; c++ {
		for i, px := range src.Pixels {
			srcPlane[i] = half.FromFloat32(component(px, c))
		}
		exr.HalfDownsampleBox(srcPlane, src.Width, src.Height, dstPlane, dw, dh)
		for i := range dst.Pixels {
			setComponent(&dst.Pixels[i], c, dstPlane[i].Float32())
		}
	}
	return dst
}

func component(px exr.RGBA, c int) float32 {
	switch c {
	case 0:
		return px.R
	case 1:
		return px.G
	case 2:
		return px.B
	default:
		return px.A
	}
}

func setComponent(px *exr.RGBA, c int, v float32) {
	switch c {
	case 0:
		px.R = v
	case 1:
		px.G = v
	case 2:
		px.B = v
	default:
		px.A = v
	}
}

// Levels returns the number of mip levels.
func (m *Map) Levels() int {
	return len(m.levels)
}

// Level returns one mip level.
//
// Parameters:
//   - i: the level index, 0 is full resolution
//
// Returns:
//   - *exr.EnvMapImage: the level image
func (m *Map) Level(i int) *exr.EnvMapImage {
	return m.levels[i]
}

// Size returns the full resolution of the map.
func (m *Map) Size() (width, height int) {
	return m.levels[0].Width, m.levels[0].Height
}

// Sample looks up the radiance along dir, blending the two mip levels around
// roughness * (Levels - 1).
//
// Parameters:
//   - dir: the lookup direction, need not be normalized
//   - roughness: the surface roughness in [0, 1]
//
// Returns:
//   - mgl32.Vec3: the linear radiance
func (m *Map) Sample(dir mgl32.Vec3, roughness float32) mgl32.Vec3 {
	d := exr.V3f{X: dir[0], Y: dir[1], Z: dir[2]}
	lod := mgl32.Clamp(roughness, 0, 1) * float32(len(m.levels)-1)
	lo := int(math32.Floor(lod))
	hi := min(lo+1, len(m.levels)-1)
	t := lod - float32(lo)

	a := m.levels[lo].Lookup(d)
	if hi == lo || t == 0 {
		return mgl32.Vec3{a.R, a.G, a.B}
	}
	b := m.levels[hi].Lookup(d)
	return mgl32.Vec3{
		a.R + (b.R-a.R)*t,
		a.G + (b.G-a.G)*t,
		a.B + (b.B-a.B)*t,
	}
}

// Staging packs the mip chain as half-float RGBA texel rows for GPU upload.
//
// Returns:
//   - common.TextureStagingData: RGBA16Float level 0 with the remaining levels in MipLevels
func (m *Map) Staging() common.TextureStagingData {
	w, h := m.Size()
	data := common.TextureStagingData{
		Pixels: packHalf(m.levels[0]),
		Width:  uint32(w),
		Height: uint32(h),
		Format: wgpu.TextureFormatRGBA16Float,
	}
	for _, lvl := range m.levels[1:] {
		data.MipLevels = append(data.MipLevels, packHalf(lvl))
	}
	return data
}

func packHalf(img *exr.EnvMapImage) []byte {
	buf := make([]byte, len(img.Pixels)*channels*2)
	off := 0
	for _, px := range img.Pixels {
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(buf[off:], half.FromFloat32(component(px, c)).Bits())
			off += 2
		}
	}
	return buf
}
