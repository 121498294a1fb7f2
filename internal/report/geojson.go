package report

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/fahmycader/metermate-backend/internal/model"
)

// JobFeatureCollection converts job sites to a GeoJSON feature collection.
// Jobs without a valid coordinate are skipped.
func JobFeatureCollection(jobs []model.Job) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{}
	for i := range jobs {
		j := &jobs[i]
		if !j.Site().Valid() {
			continue
		}
		pt := geom.NewPointFlat(geom.XY, []float64{j.SiteLng, j.SiteLat}).SetSRID(4326)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       j.ID,
			Geometry: pt,
			Properties: map[string]interface{}{
				"address":    j.Address,
				"status":     string(j.Status),
				"assignedTo": j.AssignedTo,
			},
		})
	}
	return fc, nil
}

// WriteGeoJSON writes job sites to a GeoJSON file at path.
func WriteGeoJSON(jobs []model.Job, path string) error {
	fc, err := JobFeatureCollection(jobs)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
