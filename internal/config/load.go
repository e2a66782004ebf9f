package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a pipeline file. The format is chosen by extension: .yaml and
// .yml decode as YAML, anything else as JSON. Unknown fields are rejected.
// ${VAR} references in DSN and credential fields are expanded from the
// environment, then defaults are applied.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	var p Pipeline
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = DecodeYAML(b, &p)
	default:
		err = DecodeJSON(b, &p)
	}
	if err != nil {
		return Pipeline{}, fmt.Errorf("decode %s: %w", path, err)
	}
	p.ExpandEnv()
	p.ApplyDefaults()
	return p, nil
}

// DecodeJSON decodes b strictly into p.
func DecodeJSON(b []byte, p *Pipeline) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(p)
}

// DecodeYAML decodes b strictly into p.
func DecodeYAML(b []byte, p *Pipeline) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(p)
}

// ExpandEnv expands ${VAR} in fields that commonly carry secrets or hosts.
func (p *Pipeline) ExpandEnv() {
	p.Warehouse.DSN = os.ExpandEnv(p.Warehouse.DSN)
	p.ObjectStorage.IAMRole = os.ExpandEnv(p.ObjectStorage.IAMRole)
	p.Metrics.StatsdAddr = os.ExpandEnv(p.Metrics.StatsdAddr)
	p.Metrics.PushgatewayURL = os.ExpandEnv(p.Metrics.PushgatewayURL)
	for ref, k := range p.Credentials.Static {
		k.AccessKey = os.ExpandEnv(k.AccessKey)
		k.SecretKey = os.ExpandEnv(k.SecretKey)
		k.SessionToken = os.ExpandEnv(k.SessionToken)
		p.Credentials.Static[ref] = k
	}
}

// ApplyDefaults fills names and options left empty.
func (p *Pipeline) ApplyDefaults() {
	if p.Job == "" {
		p.Job = "sparkify"
	}
	if p.Credentials.Provider == "" {
		p.Credentials.Provider = "env"
	}
	for i := range p.Stages {
		s := &p.Stages[i]
		if s.Name == "" {
			s.Name = "stage_" + s.Table
		}
		if s.JSONPath == "" {
			s.JSONPath = "auto"
		}
	}
	if p.Fact.Name == "" && p.Fact.Table != "" {
		p.Fact.Name = "load_" + p.Fact.Table + "_fact_table"
	}
	for i := range p.Dimensions {
		d := &p.Dimensions[i]
		if d.Name == "" {
			d.Name = "load_" + d.Table + "_dim_table"
		}
		if d.InsertMode == "" {
			d.InsertMode = InsertAppend
		}
	}
	if p.Quality.Name == "" {
		p.Quality.Name = "run_data_quality_checks"
	}
	if p.Metrics.Backend == "" {
		p.Metrics.Backend = "none"
	}
}
