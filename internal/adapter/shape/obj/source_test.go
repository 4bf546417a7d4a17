package obj

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auroraviz/aurora/internal/domain"
)

func writeOBJ(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSource_List_BuiltinsOnly(t *testing.T) {
	s := New("")

	names, err := s.List()

	require.NoError(t, err)
	assert.Equal(t, []string{"cube", "pyramid", "diamond", "torus"}, names)
}

func TestSource_List_MergesDirectorySorted(t *testing.T) {
	dir := t.TempDir()
	writeOBJ(t, dir, "skull.obj", "v 0 0 0\n")
	writeOBJ(t, dir, "anchor.obj", "v 0 0 0\n")
	writeOBJ(t, dir, "cube.obj", "v 0 0 0\n") // shadows the builtin, no duplicate
	writeOBJ(t, dir, "notes.txt", "ignored")

	names, err := New(dir).List()

	require.NoError(t, err)
	assert.Equal(t, []string{"cube", "pyramid", "diamond", "torus", "anchor", "skull"}, names)
}

func TestSource_List_MissingDirectoryFallsBack(t *testing.T) {
	names, err := New(filepath.Join(t.TempDir(), "absent")).List()

	require.NoError(t, err)
	assert.Equal(t, []string{"cube", "pyramid", "diamond", "torus"}, names)
}

func TestSource_Load_UnknownAsset(t *testing.T) {
	shape, err := New("").Load("teapot")

	assert.Nil(t, shape)
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestSource_Load_BuiltinsAreFreshCopies(t *testing.T) {
	s := New("")

	first, err := s.Load("cube")
	require.NoError(t, err)
	second, err := s.Load("cube")
	require.NoError(t, err)

	first.Triangles[0].A.X = 99
	assert.NotEqual(t, first.Triangles[0].A, second.Triangles[0].A)
}

func TestSource_Load_BuiltinShapes(t *testing.T) {
	tests := []struct {
		name  string
		wantN int
	}{
		{"cube", 12},
		{"pyramid", 6},
		{"diamond", 8},
		{"torus", 24 * 12 * 2},
	}

	s := New("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, err := s.Load(tt.name)

			require.NoError(t, err)
			assert.Equal(t, tt.name, shape.ID)
			assert.Len(t, shape.Triangles, tt.wantN)
			for _, tri := range shape.Triangles {
				n := tri.B.Sub(tri.A).Cross(tri.C.Sub(tri.A))
				assert.Greater(t, n.Length(), 1e-9, "degenerate triangle")
			}
		})
	}
}

func TestSource_Load_ParsesTriangles(t *testing.T) {
	dir := t.TempDir()
	writeOBJ(t, dir, "tri.obj", `
# a single triangle
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`)

	shape, err := New(dir).Load("tri")

	require.NoError(t, err)
	require.Len(t, shape.Triangles, 1)
	assert.Equal(t, domain.Vec3{X: 1}, shape.Triangles[0].B)
	assert.Equal(t, domain.Vec3{Y: 1}, shape.Triangles[0].C)
}

func TestSource_Load_FanTriangulatesQuads(t *testing.T) {
	dir := t.TempDir()
	writeOBJ(t, dir, "quad.obj", `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1/1/1 2/2/1 3/3/1 4/4/1
`)

	shape, err := New(dir).Load("quad")

	require.NoError(t, err)
	require.Len(t, shape.Triangles, 2)
	assert.Equal(t, domain.Vec3{}, shape.Triangles[0].A)
	assert.Equal(t, domain.Vec3{}, shape.Triangles[1].A)
	assert.Equal(t, domain.Vec3{X: 1, Y: 1}, shape.Triangles[1].B)
}

func TestSource_Load_NegativeIndices(t *testing.T) {
	dir := t.TempDir()
	writeOBJ(t, dir, "neg.obj", `
v 0 0 0
v 2 0 0
v 0 2 0
f -3 -2 -1
`)

	shape, err := New(dir).Load("neg")

	require.NoError(t, err)
	require.Len(t, shape.Triangles, 1)
	assert.Equal(t, domain.Vec3{X: 2}, shape.Triangles[0].B)
}

func TestSource_Load_IndexOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeOBJ(t, dir, "bad.obj", `
v 0 0 0
v 1 0 0
f 1 2 9
`)

	shape, err := New(dir).Load("bad")

	assert.Nil(t, shape)
	var srcErr *domain.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "parse", srcErr.Op)
}

func TestSource_Load_NoFacesIsEmptyShape(t *testing.T) {
	dir := t.TempDir()
	writeOBJ(t, dir, "points.obj", "v 0 0 0\nv 1 1 1\n")

	shape, err := New(dir).Load("points")

	assert.Nil(t, shape)
	assert.ErrorIs(t, err, domain.ErrEmptyShape)
}

func TestSource_Load_DirectoryShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeOBJ(t, dir, "cube.obj", `
v 0 0 0
v 3 0 0
v 0 3 0
f 1 2 3
`)

	shape, err := New(dir).Load("cube")

	require.NoError(t, err)
	assert.Len(t, shape.Triangles, 1)
}

func TestTorusShape_PointsOnSurface(t *testing.T) {
	for _, tri := range torusShape() {
		for _, p := range []domain.Vec3{tri.A, tri.B, tri.C} {
			ringDist := math.Hypot(math.Hypot(p.X, p.Z)-1.0, p.Y)
			assert.InDelta(t, 0.4, ringDist, 1e-9)
		}
	}
}
