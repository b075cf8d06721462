package xmath

// Vec2 is a 2D texture coordinate pair.
type Vec2 struct {
	U, V float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.U + other.U, v.V + other.V}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.U - other.U, v.V - other.V}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.U * s, v.V * s}
}
