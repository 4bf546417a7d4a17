// Package obj provides morph target shapes, either generated built-ins or
// loaded from a directory of Wavefront OBJ files. Only the OBJ subset the
// baker needs is read: vertex positions and faces, expanded to a raw
// triangle soup.
package obj

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/auroraviz/aurora/internal/domain"
	"github.com/auroraviz/aurora/internal/ports"
)

// Source serves built-in shapes and .obj files from an optional directory.
// A file with the same name as a built-in shadows it.
//
// Thread-safety: Source holds no mutable state; every Load builds a fresh
// shape the caller owns outright.
type Source struct {
	dir string
}

// New creates a shape source. dir may be empty to serve built-ins only.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Load returns the named shape as a raw triangle soup.
func (s *Source) Load(assetID string) (*domain.Shape, error) {
	if s.dir != "" {
		path := filepath.Join(s.dir, assetID+".obj")
		if _, err := os.Stat(path); err == nil {
			return s.loadFile(assetID, path)
		}
	}

	if build, ok := builtins[assetID]; ok {
		return &domain.Shape{ID: assetID, Triangles: build()}, nil
	}

	return nil, domain.NewSourceError("load", assetID, "unknown shape asset", domain.ErrFileNotFound)
}

// List returns built-in names in display order followed by the sorted .obj
// files found in the directory.
func (s *Source) List() ([]string, error) {
	names := make([]string, 0, len(builtinOrder))
	names = append(names, builtinOrder...)

	if s.dir == "" {
		return names, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return names, nil
		}
		return nil, domain.NewSourceError("list", s.dir, "cannot read shape directory", err)
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}

	var fromDir []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".obj") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !seen[id] {
			fromDir = append(fromDir, id)
			seen[id] = true
		}
	}
	sort.Strings(fromDir)

	return append(names, fromDir...), nil
}

func (s *Source) loadFile(assetID, path string) (*domain.Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewSourceError("load", path, "cannot open shape file", err)
	}
	defer func() { _ = f.Close() }()

	tris, err := parseOBJ(f, path)
	if err != nil {
		return nil, err
	}

	return &domain.Shape{ID: assetID, Triangles: tris}, nil
}

// parseOBJ reads v and f records, fan-triangulating faces with more than
// three corners. Texture and normal references after a slash are ignored.
func parseOBJ(f *os.File, path string) ([]domain.Triangle, error) {
	var (
		verts []domain.Vec3
		tris  []domain.Triangle
	)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, parseErr(path, lineNo, "vertex needs three coordinates")
			}
			var coords [3]float64
			for i := 0; i < 3; i++ {
				c, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, parseErr(path, lineNo, "bad vertex coordinate")
				}
				coords[i] = c
			}
			verts = append(verts, domain.Vec3{X: coords[0], Y: coords[1], Z: coords[2]})

		case "f":
			if len(fields) < 4 {
				return nil, parseErr(path, lineNo, "face needs at least three corners")
			}
			idx := make([]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				i, err := faceIndex(tok, len(verts))
				if err != nil {
					return nil, parseErr(path, lineNo, err.Error())
				}
				idx = append(idx, i)
			}
			for i := 2; i < len(idx); i++ {
				tris = append(tris, domain.Triangle{
					A: verts[idx[0]],
					B: verts[idx[i-1]],
					C: verts[idx[i]],
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.NewSourceError("parse", path, "cannot read shape file", err)
	}

	if len(tris) == 0 {
		return nil, domain.NewSourceError("parse", path, "no faces in file", domain.ErrEmptyShape)
	}

	return tris, nil
}

// faceIndex resolves one face corner token to a zero-based vertex index.
// OBJ indices are one-based; negative values count back from the most
// recently read vertex.
func faceIndex(tok string, vertCount int) (int, error) {
	if slash := strings.IndexByte(tok, '/'); slash >= 0 {
		tok = tok[:slash]
	}

	idx, err := strconv.Atoi(tok)
	if err != nil || idx == 0 {
		return 0, errBadIndex
	}
	if idx < 0 {
		idx = vertCount + idx + 1
	}
	if idx < 1 || idx > vertCount {
		return 0, errBadIndex
	}

	return idx - 1, nil
}

var errBadIndex = errors.New("face index out of range")

func parseErr(path string, line int, msg string) error {
	return domain.NewSourceError("parse", path, msg+" (line "+strconv.Itoa(line)+")", nil)
}

// Verify that Source implements the ShapeSource interface
var _ ports.ShapeSource = (*Source)(nil)
