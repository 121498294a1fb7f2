package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/fahmycader/metermate-backend/internal/model"
)

// parseJobsFile reads a list of jobs from a YAML or JSON file. YAML documents
// are normalized through JSON so both formats share the job field names.
func parseJobsFile(path string) ([]model.Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, eris.Wrapf(err, "jobs: parse YAML %s", path)
		}
		raw, err = json.Marshal(doc)
		if err != nil {
			return nil, eris.Wrap(err, "jobs: normalize YAML")
		}
	case ".json":
	default:
		return nil, eris.Errorf("jobs: unsupported file type %s", filepath.Ext(path))
	}

	var jobs []model.Job
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return nil, eris.Wrapf(err, "jobs: decode %s", path)
	}
	if len(jobs) == 0 {
		return nil, eris.Errorf("jobs: no jobs in %s", path)
	}
	return jobs, nil
}
