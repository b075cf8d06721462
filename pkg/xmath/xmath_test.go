package xmath

import (
	"math"
	"testing"
)

func TestVec3Add(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}
	got := a.Add(b)
	want := Vec3{5, 7, 9}
	if got != want {
		t.Errorf("Vec3.Add() = %v, want %v", got, want)
	}
}

func TestVec3Sub(t *testing.T) {
	a := Vec3{4, 5, 6}
	b := Vec3{1, 2, 3}
	got := a.Sub(b)
	want := Vec3{3, 3, 3}
	if got != want {
		t.Errorf("Vec3.Sub() = %v, want %v", got, want)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Length(t *testing.T) {
	v := Vec3{3, 4, 0}
	got := v.Length()
	want := float32(5)
	if got != want {
		t.Errorf("Vec3.Length() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 5}
	l := v.Normalize().Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
}

func TestVec3NormalizeZero(t *testing.T) {
	got := (Vec3{}).Normalize()
	if got != (Vec3{}) {
		t.Errorf("zero vector Normalize() = %v, want zero", got)
	}
}

func TestVec3Dot(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}
	got := a.Dot(b)
	if got != 32 {
		t.Errorf("Vec3.Dot() = %v, want 32", got)
	}
}

func TestVec2Scale(t *testing.T) {
	v := Vec2{0.5, 0.25}
	got := v.Scale(2)
	want := Vec2{1, 0.5}
	if got != want {
		t.Errorf("Vec2.Scale() = %v, want %v", got, want)
	}
}

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.W != 1 || q.X != 0 || q.Y != 0 || q.Z != 0 {
		t.Errorf("QuatIdentity() = %v", q)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()
	l := math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W))
	if l < 0.999 || l > 1.001 {
		t.Errorf("Quat.Normalize() length = %v, want ~1", l)
	}
}

func TestQuatNormalizeDegenerate(t *testing.T) {
	got := Quat{}.Normalize()
	if got != QuatIdentity() {
		t.Errorf("degenerate Normalize() = %v, want identity", got)
	}
}

func TestQuatSlerpEndpoints(t *testing.T) {
	a := QuatIdentity()
	b := Quat{X: 0, Y: float32(math.Sin(math.Pi / 4)), Z: 0, W: float32(math.Cos(math.Pi / 4))}

	got := a.Slerp(b, 0)
	if quatDist(got, a) > 0.001 {
		t.Errorf("Slerp(t=0) = %v, want %v", got, a)
	}
	got = a.Slerp(b, 1)
	if quatDist(got, b) > 0.001 {
		t.Errorf("Slerp(t=1) = %v, want %v", got, b)
	}
}

func quatDist(a, b Quat) float32 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	dw := a.W - b.W
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz + dw*dw)))
}

func TestMat4IdentityMul(t *testing.T) {
	m := Translation(1, 2, 3)
	got := m.Mul(Identity())
	if got != m {
		t.Errorf("M * I = %v, want %v", got, m)
	}
}

func TestMat4TranslationCompose(t *testing.T) {
	a := Translation(1, 0, 0)
	b := Translation(0, 2, 0)
	got := a.Mul(b)
	want := Translation(1, 2, 0)
	if got != want {
		t.Errorf("Translation compose = %v, want %v", got, want)
	}
}

func TestMat4Scaling(t *testing.T) {
	m := Scaling(2, 3, 4)
	if m[0] != 2 || m[5] != 3 || m[10] != 4 {
		t.Errorf("Scaling() diagonal = %v, %v, %v", m[0], m[5], m[10])
	}
}
