package world

import (
	"math"

	"github.com/roadsim/roadsim/internal/geometry"
)

const (
	defaultBuildingHeight = 200
	defaultTreeHeight     = 200
	treeBaseSides         = 16
)

// Building is a rectangular footprint extruded to Height.
type Building struct {
	Base   geometry.Polygon
	Height float64
}

// Ceiling returns the footprint lifted for a viewer standing at viewPoint.
func (b Building) Ceiling(viewPoint geometry.Point) []geometry.Point {
	top := make([]geometry.Point, len(b.Base.Points))
	for i, p := range b.Base.Points {
		top[i] = geometry.Fake3D(p, viewPoint, b.Height*0.6)
	}
	return top
}

// Tree is a round obstacle placed beside the road.
type Tree struct {
	Center geometry.Point
	Size   float64
	Height float64
	Base   geometry.Polygon
}

func newTree(center geometry.Point, size float64) Tree {
	points := make([]geometry.Point, treeBaseSides)
	for i := range points {
		a := 2 * math.Pi * float64(i) / treeBaseSides
		points[i] = geometry.Translate(center, a, size/2)
	}
	base, _ := geometry.NewPolygon(points)
	return Tree{Center: center, Size: size, Height: defaultTreeHeight, Base: base}
}

func (w *World) generateBuildings() ([]Building, error) {
	wide, err := envelopesFor(w.Graph.Segments(), w.RoadWidth+w.BuildingWidth+w.Spacing*2, w.RoadRoundness)
	if err != nil {
		return nil, err
	}

	var supports []geometry.Segment
	for _, guide := range geometry.Union(polygons(wide)) {
		if guide.Length() < w.BuildingMinLength {
			continue
		}
		dir, err := guide.Direction()
		if err != nil {
			continue
		}
		length := guide.Length() + w.Spacing
		count := int(math.Floor(length / (w.BuildingMinLength + w.Spacing)))
		if count < 1 {
			continue
		}
		buildingLength := length/float64(count) - w.Spacing

		q1 := guide.P1
		q2 := geometry.Add(q1, geometry.Scale(dir, buildingLength))
		supports = append(supports, geometry.Segment{P1: q1, P2: q2})
		for i := 2; i <= count; i++ {
			q1 = geometry.Add(q2, geometry.Scale(dir, w.Spacing))
			q2 = geometry.Add(q1, geometry.Scale(dir, buildingLength))
			supports = append(supports, geometry.Segment{P1: q1, P2: q2})
		}
	}

	var bases []geometry.Polygon
	for _, s := range supports {
		env, err := geometry.NewEnvelope(s, w.BuildingWidth, 1)
		if err != nil {
			continue
		}
		bases = append(bases, env.Polygon)
	}

	// earlier bases win over later ones that overlap or crowd them
	for i := 0; i < len(bases)-1; i++ {
		for j := i + 1; j < len(bases); j++ {
			if bases[i].IntersectsPolygon(bases[j]) ||
				bases[i].DistanceToPolygon(bases[j]) < w.Spacing-geometry.Epsilon {
				bases = append(bases[:j], bases[j+1:]...)
				j--
			}
		}
	}

	buildings := make([]Building, len(bases))
	for i, b := range bases {
		buildings[i] = Building{Base: b, Height: defaultBuildingHeight}
	}
	return buildings, nil
}

// generateTrees scatters trees off the road and away from buildings, but
// close enough to something to look planted. It gives up after 100
// consecutive rejected candidates.
func (w *World) generateTrees() []Tree {
	var points []geometry.Point
	for _, s := range w.RoadBorders {
		points = append(points, s.P1, s.P2)
	}
	for _, b := range w.Buildings {
		points = append(points, b.Base.Points...)
	}
	lo, hi, ok := geometry.Bounds(points)
	if !ok || w.TreeSize <= 0 {
		return nil
	}

	var obstacles []geometry.Polygon
	for _, b := range w.Buildings {
		obstacles = append(obstacles, b.Base)
	}
	obstacles = append(obstacles, polygons(w.Envelopes)...)

	var trees []Tree
	for tries := 0; tries < 100; tries++ {
		p := geometry.Point{
			X: geometry.Lerp(lo.X, hi.X, w.rng.Float64()),
			Y: geometry.Lerp(lo.Y, hi.Y, w.rng.Float64()),
		}
		if !w.treeFits(p, obstacles, trees) {
			continue
		}
		trees = append(trees, newTree(p, w.TreeSize))
		tries = -1
	}
	return trees
}

func (w *World) treeFits(p geometry.Point, obstacles []geometry.Polygon, trees []Tree) bool {
	for _, poly := range obstacles {
		if poly.ContainsPoint(p) || poly.DistanceToPoint(p) < w.TreeSize/2 {
			return false
		}
	}
	for _, t := range trees {
		if geometry.Distance(t.Center, p) < w.TreeSize {
			return false
		}
	}
	for _, poly := range obstacles {
		if poly.DistanceToPoint(p) < w.TreeSize*2 {
			return true
		}
	}
	return false
}
