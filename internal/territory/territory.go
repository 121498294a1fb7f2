// Package territory loads service-territory polygons from an ESRI shapefile
// and answers point-in-territory queries for job sites.
package territory

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/fahmycader/metermate-backend/internal/rules"
)

// Region is a named territory polygon.
type Region struct {
	Name    string
	Polygon *geom.Polygon
}

// Index holds the loaded territory regions.
type Index struct {
	regions []Region
}

// Load reads territory polygons from a shapefile. The first string attribute
// of each record is used as the region name when present.
func Load(shpPath string) (*Index, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "territory: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		if f.Fieldtype == 'C' {
			nameIdx = i
			break
		}
	}

	var regions []Region
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		name := ""
		if nameIdx >= 0 {
			name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}

		for _, g := range polygonParts(poly) {
			regions = append(regions, Region{Name: name, Polygon: g})
		}
	}

	if skipped > 0 {
		zap.L().Debug("territory: skipped non-polygon shapefile records", zap.Int("skipped", skipped))
	}
	if len(regions) == 0 {
		return nil, eris.Errorf("territory: no polygons in %s", shpPath)
	}

	zap.L().Info("territory: loaded regions", zap.Int("count", len(regions)))
	return &Index{regions: regions}, nil
}

// polygonParts converts each part of a shapefile polygon into its own
// single-ring geom.Polygon.
func polygonParts(p *shp.Polygon) []*geom.Polygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys []*geom.Polygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY).SetSRID(4326)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("territory: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		polys = append(polys, poly)
	}
	return polys
}

// Contains reports whether the coordinate lies inside any loaded region,
// and the name of the first region that contains it.
func (idx *Index) Contains(c rules.Coordinate) (bool, string) {
	pt := geom.Coord{c.Lng, c.Lat}
	for _, r := range idx.regions {
		if xy.IsPointInRing(geom.XY, pt, r.Polygon.LinearRing(0).FlatCoords()) {
			return true, r.Name
		}
	}
	return false, ""
}

// RegionCount returns the number of loaded regions.
func (idx *Index) RegionCount() int {
	return len(idx.regions)
}
