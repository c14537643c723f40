package kernel

import (
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	ambientTerm   float32 = 0.1
	diffuseTerm   float32 = 0.7
	specularTerm  float32 = 0.3
	specularPower float32 = 32
	// dielectricF0 is the normal-incidence reflectance of non-metals.
	dielectricF0 float32 = 0.04
)

// Environment is a pre-filtered reflection probe.
type Environment interface {
	// Sample returns the linear radiance seen along dir, blurred according to roughness in [0, 1].
	Sample(dir mgl32.Vec3, roughness float32) mgl32.Vec3
}

// Material groups the per-node shading parameters.
type Material struct {
	Metalness       float32
	Roughness       float32
	EnvMapIntensity float32
	// Env is optional. Without it only direct lighting is applied.
	Env Environment
}

// DirectLight returns the ambient + diffuse + specular factor at a surface point,
// summed over every light and tinted by each light's color.
//
// Parameters:
//   - position: the surface point
//   - normal: the unit surface normal
//   - cameraPosition: the eye position
//   - lights: the aggregated directional lights
//
// Returns:
//   - mgl32.Vec3: the per-channel light factor
func DirectLight(position, normal, cameraPosition mgl32.Vec3, lights []light.GPULight) mgl32.Vec3 {
	total := mgl32.Vec3{ambientTerm, ambientTerm, ambientTerm}
	view := cameraPosition.Sub(position)
	if view.Len() > 0 {
		view = view.Normalize()
	}
	for _, l := range lights {
		dir := mgl32.Vec3(l.Direction).Mul(-1)
		if dir.Len() == 0 {
			continue
		}
		dir = dir.Normalize()
		halfway := dir.Add(view)
		if halfway.Len() > 0 {
			halfway = halfway.Normalize()
		}
		diffuse := math32.Max(dir.Dot(normal), 0) * diffuseTerm
		specular := math32.Pow(math32.Max(normal.Dot(halfway), 0), specularPower) * specularTerm
		total = total.Add(mgl32.Vec3(l.Color).Mul(diffuse + specular))
	}
	return total
}

// Shade computes the linear color of a surface point.
//
// Parameters:
//   - albedo: the blended entity color
//   - position: the surface point
//   - normal: the unit surface normal
//   - rayDir: the unit view ray direction
//   - cameraPosition: the eye position
//   - lights: the aggregated directional lights
//   - mat: the node material
//
// Returns:
//   - mgl32.Vec3: the linear radiance
func Shade(albedo, position, normal, rayDir, cameraPosition mgl32.Vec3, lights []light.GPULight, mat Material) mgl32.Vec3 {
	direct := DirectLight(position, normal, cameraPosition, lights)
	lit := mgl32.Vec3{albedo[0] * direct[0], albedo[1] * direct[1], albedo[2] * direct[2]}
	if mat.Env == nil {
		return lit
	}
	reflected := Reflect(rayDir, normal)
	probe := mat.Env.Sample(reflected, mgl32.Clamp(mat.Roughness, 0, 1)).Mul(mat.EnvMapIntensity)
	metal := mgl32.Clamp(mat.Metalness, 0, 1)
	f0 := mixVec3(mgl32.Vec3{dielectricF0, dielectricF0, dielectricF0}, albedo, metal)
	return lit.Mul(1 - metal).Add(mgl32.Vec3{probe[0] * f0[0], probe[1] * f0[1], probe[2] * f0[2]})
}

// Reflect mirrors the incident direction i about the unit normal n.
func Reflect(i, n mgl32.Vec3) mgl32.Vec3 {
	return i.Sub(n.Mul(2 * n.Dot(i)))
}

// LinearToSRGB encodes a linear color with the sRGB transfer curve, clamped to [0, 1].
func LinearToSRGB(c mgl32.Vec3) mgl32.Vec3 {
	var out mgl32.Vec3
	for i, v := range c {
		if v <= 0.0031308 {
			out[i] = v * 12.92
		} else {
			out[i] = math32.Pow(v, 0.41666)*1.055 - 0.055
		}
		out[i] = mgl32.Clamp(out[i], 0, 1)
	}
	return out
}
