package kernel

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b, tol float32) bool {
	return math32.Abs(a-b) <= tol
}

func unitSphere() entity.Entity {
	return entity.NewEntity(entity.WithShape(entity.ShapeSphere), entity.WithScale(2, 2, 2))
}

func TestDistanceFunctions(t *testing.T) {
	tests := []struct {
		name string
		got  float32
		want float32
	}{
		{"box face", SdBox(mgl32.Vec3{0, 0, 2}, mgl32.Vec3{1, 1, 1}), 1},
		{"box inside", SdBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 2, 3}), -1},
		{"box corner", SdBox(mgl32.Vec3{2, 2, 0}, mgl32.Vec3{1, 1, 1}), math32.Sqrt(2)},
		{"sphere as ellipsoid", SdEllipsoid(mgl32.Vec3{0, 3, 0}, mgl32.Vec3{1, 1, 1}), 2},
		{"capsule side", SdCapsule(mgl32.Vec3{2, 0, 0}, 0.5, 3), 1.5},
		{"capsule tip", SdCapsule(mgl32.Vec3{0, 3, 0}, 0.5, 3), 1.5},
		{"rounded box entity", EntityDistance(mgl32.Vec3{0, 0, 1}, entity.NewEntity()).Distance, 0.5},
		{"capsule entity", EntityDistance(mgl32.Vec3{0, 5, 0}, entity.NewEntity(entity.WithShape(entity.ShapeCapsule), entity.WithScale(1, 4, 1))).Distance, 3},
	}
	for _, tt := range tests {
		if !near(tt.got, tt.want, 1e-4) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestEntityDistanceRespectsRotation(t *testing.T) {
	long := entity.NewEntity(entity.WithScale(4, 1, 1),
		entity.WithRotation(mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 0, 1})))
	// Rotated a quarter turn around Z the long axis points along Y.
	if d := EntityDistance(mgl32.Vec3{0, 1.5, 0}, long).Distance; d >= 0 {
		t.Errorf("distance inside rotated box = %v, want < 0", d)
	}
	if d := EntityDistance(mgl32.Vec3{1.5, 0, 0}, long).Distance; d <= 0 {
		t.Errorf("distance outside rotated box = %v, want > 0", d)
	}
}

func TestSmoothUnionReducesToMin(t *testing.T) {
	pairs := [][2]float32{{0.3, 0.8}, {-0.2, 0.1}, {2, 2}, {5, -1}, {0.01, 0.02}}
	for _, k := range []float32{1e-3, 1e-5, 0} {
		for _, p := range pairs {
			a := SDF{Distance: p[0]}
			b := SDF{Distance: p[1]}
			got := SmoothUnion(a, b, k).Distance
			want := math32.Min(p[0], p[1])
			if !near(got, want, k+1e-6) {
				t.Errorf("SmoothUnion(%v, %v, k=%v) = %v, want %v", p[0], p[1], k, got, want)
			}
		}
	}
}

func TestSmoothUnionBlends(t *testing.T) {
	a := SDF{Distance: 0.1, Color: mgl32.Vec3{1, 0, 0}}
	b := SDF{Distance: 0.1, Color: mgl32.Vec3{0, 0, 1}}
	got := SmoothUnion(a, b, 0.5)
	if !near(got.Distance, 0.1-0.5*0.25, 1e-6) {
		t.Errorf("Distance = %v, want %v", got.Distance, 0.1-0.125)
	}
	if !got.Color.ApproxEqual(mgl32.Vec3{0.5, 0, 0.5}) {
		t.Errorf("Color = %v, want (0.5, 0, 0.5)", got.Color)
	}
}

func TestSmoothSubtraction(t *testing.T) {
	a := SDF{Distance: -1, Color: mgl32.Vec3{1, 1, 1}}
	b := SDF{Distance: -0.5}
	if got := SmoothSubtraction(a, b, 0).Distance; got != 0.5 {
		t.Errorf("hard SmoothSubtraction = %v, want 0.5", got)
	}
	far := SDF{Distance: 10}
	if got := SmoothSubtraction(a, far, 0.1).Distance; got != -1 {
		t.Errorf("SmoothSubtraction(far cutter) = %v, want -1", got)
	}
}

func TestMapFoldsInOrder(t *testing.T) {
	big := unitSphere()
	cutter := entity.NewEntity(entity.WithShape(entity.ShapeSphere), entity.WithOperation(entity.OperationSubtraction))
	layer := entity.Layer{big, cutter}

	if d := Map(mgl32.Vec3{}, layer, 0.1).Distance; d <= 0 {
		t.Errorf("carved center distance = %v, want > 0", d)
	}
	if d := Map(mgl32.Vec3{0, 0, 0.8}, layer, 0.1).Distance; d >= 0 {
		t.Errorf("shell distance = %v, want < 0", d)
	}
	if d := Map(mgl32.Vec3{}, nil, 0.1).Distance; d != MaxDistance {
		t.Errorf("empty Map = %v, want %v", d, MaxDistance)
	}
}

func TestMarch(t *testing.T) {
	layer := entity.Layer{unitSphere()}
	bounds := common.Sphere{Radius: 1.1}

	hit := March(Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}, layer, 0.5, bounds)
	if !hit.Hit {
		t.Fatal("March() missed the sphere")
	}
	if !near(hit.Distance, 4, MinDistance) {
		t.Errorf("Distance = %v, want ~4", hit.Distance)
	}
	if hit.Iterations > MaxIterations {
		t.Errorf("Iterations = %d, above cap", hit.Iterations)
	}

	miss := March(Ray{Origin: mgl32.Vec3{0, 3, 5}, Direction: mgl32.Vec3{0, 0, -1}}, layer, 0.5, bounds)
	if miss.Hit {
		t.Error("March() above the sphere hit")
	}
	if miss.Iterations != 0 {
		t.Errorf("Iterations outside bounds = %d, want 0", miss.Iterations)
	}
}

func TestNormal(t *testing.T) {
	layer := entity.Layer{unitSphere()}
	n := Normal(mgl32.Vec3{0, 0, 1}, layer, 0.5)
	if !n.ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, 1e-3) {
		t.Errorf("Normal() = %v, want (0, 0, 1)", n)
	}
}

func TestDepthRange(t *testing.T) {
	proj := NewCameraProjection(mgl32.DegToRad(60), 0.1, 100)
	fwd := mgl32.Vec3{0, 0, -1}
	if d := Depth(0.1, fwd, fwd, proj); !near(d, 0, 1e-5) {
		t.Errorf("Depth(near) = %v, want 0", d)
	}
	if d := Depth(100, fwd, fwd, proj); !near(d, 1, 1e-5) {
		t.Errorf("Depth(far) = %v, want 1", d)
	}
	// Depth agrees with projecting the same point through the matrix.
	m := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	clip := m.Mul4x1(mgl32.Vec4{0, 0, -7, 1})
	want := (clip.Z()/clip.W() + 1) * 0.5
	if d := Depth(7, fwd, fwd, proj); !near(d, want, 1e-5) {
		t.Errorf("Depth(7) = %v, want %v", d, want)
	}
}

func TestCameraRay(t *testing.T) {
	world := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}).Inv()
	proj := NewCameraProjection(mgl32.DegToRad(90), 0.1, 100)
	center := CameraRay(world, proj, 1, 0, 0)
	if !center.Direction.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("center ray = %v, want (0, 0, -1)", center.Direction)
	}
	if !center.Origin.ApproxEqualThreshold(mgl32.Vec3{0, 0, 5}, 1e-5) {
		t.Errorf("origin = %v, want (0, 0, 5)", center.Origin)
	}
	// With a 90 degree fov the top edge ray is 45 degrees up.
	top := CameraRay(world, proj, 1, 0, 1)
	if !top.Direction.ApproxEqualThreshold(mgl32.Vec3{0, 1, -1}.Normalize(), 1e-5) {
		t.Errorf("top ray = %v, want 45 degrees up", top.Direction)
	}
}

func TestDirectLight(t *testing.T) {
	n := mgl32.Vec3{0, 1, 0}
	if l := DirectLight(mgl32.Vec3{}, n, mgl32.Vec3{0, 5, 0}, nil); !l.ApproxEqual(mgl32.Vec3{0.1, 0.1, 0.1}) {
		t.Errorf("DirectLight(no lights) = %v, want ambient", l)
	}
	overhead := []light.GPULight{{Color: [3]float32{1, 1, 1}, Direction: [3]float32{0, -1, 0}}}
	// Facing the light and the eye: ambient + full diffuse + full specular.
	if l := DirectLight(mgl32.Vec3{}, n, mgl32.Vec3{0, 5, 0}, overhead); !near(l[0], 1.1, 1e-4) {
		t.Errorf("DirectLight(overhead) = %v, want 1.1", l[0])
	}
}

type constantEnv mgl32.Vec3

func (c constantEnv) Sample(mgl32.Vec3, float32) mgl32.Vec3 { return mgl32.Vec3(c) }

func TestShadeMetalness(t *testing.T) {
	albedo := mgl32.Vec3{1, 0, 0}
	n := mgl32.Vec3{0, 0, 1}
	dir := mgl32.Vec3{0, 0, -1}
	eye := mgl32.Vec3{0, 0, 5}

	plain := Shade(albedo, mgl32.Vec3{}, n, dir, eye, nil, Material{})
	if !plain.ApproxEqual(mgl32.Vec3{0.1, 0, 0}) {
		t.Errorf("Shade(no env) = %v, want (0.1, 0, 0)", plain)
	}
	metal := Shade(albedo, mgl32.Vec3{}, n, dir, eye, nil, Material{Metalness: 1, EnvMapIntensity: 2, Env: constantEnv{0, 1, 1}})
	// A full metal reflects the probe tinted by its albedo only.
	if !metal.ApproxEqual(mgl32.Vec3{0, 0, 0}) {
		t.Errorf("Shade(metal, cyan probe) = %v, want black", metal)
	}
}

func TestLinearToSRGB(t *testing.T) {
	got := LinearToSRGB(mgl32.Vec3{0, 1, 2})
	if got[0] != 0 || !near(got[1], 1, 1e-3) || got[2] != 1 {
		t.Errorf("LinearToSRGB() = %v, want (0, 1, 1)", got)
	}
	if got := LinearToSRGB(mgl32.Vec3{0.001, 0, 0}); !near(got[0], 0.01292, 1e-6) {
		t.Errorf("LinearToSRGB(linear segment) = %v, want 0.01292", got[0])
	}
}

func TestEvaluate(t *testing.T) {
	layer := entity.Layer{unitSphere()}
	p := Params{
		CameraPosition: mgl32.Vec3{0, 0, 5},
		CameraForward:  mgl32.Vec3{0, 0, -1},
		Projection:     NewCameraProjection(mgl32.DegToRad(45), 0.1, 100),
		Blending:       0.5,
		Bounds:         common.Sphere{Radius: 1.1},
	}
	hit := Evaluate(Ray{Origin: p.CameraPosition, Direction: mgl32.Vec3{0, 0, -1}}, layer, p)
	if hit.Discard || hit.Color.W() != 1 {
		t.Fatalf("Evaluate(center) = %+v, want opaque hit", hit)
	}
	if hit.Depth <= 0 || hit.Depth >= 1 {
		t.Errorf("Depth = %v, want inside (0, 1)", hit.Depth)
	}
	miss := Evaluate(Ray{Origin: p.CameraPosition, Direction: mgl32.Vec3{0, 1, 0}}, layer, p)
	if !miss.Discard {
		t.Error("Evaluate(miss) did not discard")
	}

	p.Conetracing = true
	p.ConeRadius = 0.01
	cone := Evaluate(Ray{Origin: p.CameraPosition, Direction: mgl32.Vec3{0, 0, -1}}, layer, p)
	if cone.Discard || cone.Color.W() < 1-MinCoverage-1e-3 {
		t.Errorf("cone Evaluate(center) alpha = %v, want ~opaque", cone.Color.W())
	}
}
