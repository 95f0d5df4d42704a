package math

import "testing"

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 || m[12] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translation(Vec3{1, 2, 3})
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslation(t *testing.T) {
	m := Translation(Vec3{5, 10, 15})

	// Translation lives in the fourth column (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translation: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}

	got := m.TransformVec3(Vec3{1, 2, 3})
	if want := (Vec3{6, 12, 18}); got != want {
		t.Errorf("TransformVec3: got %v, want %v", got, want)
	}
}

func TestUniformScale(t *testing.T) {
	m := UniformScale(2)

	if m[0] != 2 || m[5] != 2 || m[10] != 2 || m[15] != 1 {
		t.Errorf("UniformScale diagonal: got (%f, %f, %f, %f)", m[0], m[5], m[10], m[15])
	}
}

func TestMulOrder(t *testing.T) {
	// Translate first, then scale: (p + t) * s
	m := UniformScale(2).Mul(Translation(Vec3{1, 0, -1}))

	got := m.TransformVec3(Vec3{1, 1, 1})
	if want := (Vec3{4, 2, 0}); got != want {
		t.Errorf("scale * translate: got %v, want %v", got, want)
	}

	// Scale first, then translate: p * s + t
	m = Translation(Vec3{1, 0, -1}).Mul(UniformScale(2))
	got = m.TransformVec3(Vec3{1, 1, 1})
	if want := (Vec3{3, 2, 1}); got != want {
		t.Errorf("translate * scale: got %v, want %v", got, want)
	}
}

func TestTransformDirection(t *testing.T) {
	m := Translation(Vec3{10, 20, 30}).Mul(UniformScale(3))

	got := m.TransformDirection(Vec3{0, 1, 0})
	if want := (Vec3{0, 3, 0}); got != want {
		t.Errorf("TransformDirection: got %v, want %v", got, want)
	}
}
