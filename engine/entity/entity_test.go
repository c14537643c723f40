package entity

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-4

func near(a, b mgl32.Vec3) bool {
	return math32.Abs(a[0]-b[0]) <= epsilon && math32.Abs(a[1]-b[1]) <= epsilon && math32.Abs(a[2]-b[2]) <= epsilon
}

func TestNewEntityDefaults(t *testing.T) {
	e := NewEntity()
	if e.Shape != ShapeBox || e.Operation != OperationUnion {
		t.Errorf("NewEntity() shape/op = %v/%v, want box/union", e.Shape, e.Operation)
	}
	if e.Scale != (mgl32.Vec3{1, 1, 1}) || e.Color != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("NewEntity() scale/color = %v/%v, want ones", e.Scale, e.Color)
	}
	if e.Rotation != mgl32.QuatIdent() {
		t.Errorf("NewEntity() rotation = %v, want identity", e.Rotation)
	}
}

func TestEntityValidate(t *testing.T) {
	if err := NewEntity(WithShape(ShapeSphere)).Validate(); err != nil {
		t.Errorf("Validate(sphere) = %v, want nil", err)
	}
	if err := NewEntity(WithShape(Shape(7))).Validate(); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("Validate(shape 7) = %v, want ErrUnknownShape", err)
	}
	if err := NewEntity(WithOperation(Operation(3))).Validate(); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("Validate(op 3) = %v, want ErrUnknownOperation", err)
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		in      string
		want    Shape
		wantErr bool
	}{
		{"box", ShapeBox, false},
		{"capsule", ShapeCapsule, false},
		{"sphere", ShapeSphere, false},
		{"torus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseShape(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseShape(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
	if op, err := ParseOperation("substraction"); err != nil || op != OperationSubtraction {
		t.Errorf("ParseOperation(substraction) = %v, %v; want subtraction", op, err)
	}
}

func TestColliderForUnknownShapePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("ColliderFor(99) did not panic")
		}
	}()
	ColliderFor(Shape(99))
}

func TestWorldBounds(t *testing.T) {
	tests := []struct {
		name       string
		entity     Entity
		wantCenter mgl32.Vec3
		wantRadius float32
	}{
		{
			name:       "unit box",
			entity:     NewEntity(WithPosition(1, 2, 3)),
			wantCenter: mgl32.Vec3{1, 2, 3},
			wantRadius: math32.Sqrt(3) / 2,
		},
		{
			name:       "scaled sphere",
			entity:     NewEntity(WithShape(ShapeSphere), WithScale(2, 4, 1)),
			wantCenter: mgl32.Vec3{},
			wantRadius: 2,
		},
		{
			// Z follows X, so a large Z scale does not widen the bound.
			name:       "capsule ignores z scale",
			entity:     NewEntity(WithShape(ShapeCapsule), WithScale(1, 2, 10)),
			wantCenter: mgl32.Vec3{},
			wantRadius: math32.Sqrt(0.5) * 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.entity.WorldBounds()
			if !near(b.Center, tt.wantCenter) {
				t.Errorf("Center = %v, want %v", b.Center, tt.wantCenter)
			}
			if math32.Abs(b.Radius-tt.wantRadius) > epsilon {
				t.Errorf("Radius = %v, want %v", b.Radius, tt.wantRadius)
			}
		})
	}
}

func TestIntersectRay(t *testing.T) {
	origin := mgl32.Vec3{0, 0, 5}
	dir := mgl32.Vec3{0, 0, -1}

	tests := []struct {
		name   string
		entity Entity
		want   float32
		hit    bool
	}{
		{"box", NewEntity(), 4.5, true},
		{"scaled box", NewEntity(WithScale(1, 1, 4)), 3, true},
		{"sphere", NewEntity(WithShape(ShapeSphere), WithScale(2, 2, 2)), 4, true},
		{"capsule side", NewEntity(WithShape(ShapeCapsule), WithScale(2, 2, 2)), 4, true},
		{"offset miss", NewEntity(WithPosition(3, 0, 0)), 0, false},
		{"behind", NewEntity(WithPosition(0, 0, 10)), 0, false},
		{
			"rotated box",
			NewEntity(WithScale(4, 1, 1), WithRotation(mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0}))),
			3,
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.entity.IntersectRay(origin, dir)
			if ok != tt.hit {
				t.Fatalf("IntersectRay() hit = %v, want %v", ok, tt.hit)
			}
			if ok && math32.Abs(got-tt.want) > epsilon {
				t.Errorf("IntersectRay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersectRayCapsuleCap(t *testing.T) {
	e := NewEntity(WithShape(ShapeCapsule), WithScale(1, 4, 1))
	got, ok := e.IntersectRay(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -1, 0})
	if !ok || math32.Abs(got-8) > epsilon {
		t.Errorf("IntersectRay(top cap) = %v, %v; want 8, true", got, ok)
	}
}

func TestToLocal(t *testing.T) {
	e := NewEntity(
		WithPosition(1, 0, 0),
		WithRotation(mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 0, 1})),
	)
	// A quarter turn around Z maps local +X to world +Y.
	got := e.ToLocal(mgl32.Vec3{1, 1, 0})
	if !near(got, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("ToLocal() = %v, want (1, 0, 0)", got)
	}
}

func TestCloneLayersDoesNotAlias(t *testing.T) {
	src := []Layer{{NewEntity(WithColor(1, 0, 0))}, {NewEntity(), NewEntity()}}
	dst := CloneLayers(src)
	dst[0][0].Color = mgl32.Vec3{0, 1, 0}
	dst[1][1].Position = mgl32.Vec3{9, 9, 9}

	if src[0][0].Color != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("source color changed to %v", src[0][0].Color)
	}
	if src[1][1].Position != (mgl32.Vec3{}) {
		t.Errorf("source position changed to %v", src[1][1].Position)
	}
	if MaxLen(dst) != 2 {
		t.Errorf("MaxLen() = %d, want 2", MaxLen(dst))
	}
}

func TestMarshalLayer(t *testing.T) {
	layer := Layer{NewEntity(WithShape(ShapeSphere), WithOperation(OperationSubtraction))}
	buf := MarshalLayer(layer, 3)
	if len(buf) != 3*64 {
		t.Fatalf("len(MarshalLayer()) = %d, want %d", len(buf), 3*64)
	}
	if buf[28] != byte(ShapeSphere) || buf[12] != byte(OperationSubtraction) {
		t.Errorf("shape/op bytes = %d/%d, want 2/1", buf[28], buf[12])
	}
	if got := len(MarshalLayer(nil, 0)); got != 64 {
		t.Errorf("len(MarshalLayer(empty)) = %d, want 64", got)
	}
}

func TestColliderProxyScale(t *testing.T) {
	tests := []struct {
		shape Shape
		scale mgl32.Vec3
		want  mgl32.Vec3
	}{
		{ShapeCapsule, mgl32.Vec3{2, 3, 5}, mgl32.Vec3{2, 3, 2}},
		{ShapeBox, mgl32.Vec3{2, 3, 5}, mgl32.Vec3{2, 3, 5}},
		{ShapeSphere, mgl32.Vec3{2, 3, 5}, mgl32.Vec3{2, 3, 5}},
	}
	for _, tt := range tests {
		if got := ColliderFor(tt.shape).ProxyScale(tt.scale); got != tt.want {
			t.Errorf("ColliderFor(%v).ProxyScale(%v) = %v, want %v", tt.shape, tt.scale, got, tt.want)
		}
	}
}
