package quota

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk layout of a plan limits file.
//
//	plans:
//	  - tier: free
//	    name: Free
//	    limits: {products: 100, stores: 1}
//	    features: []
type yamlDocument struct {
	Plans []Plan `yaml:"plans"`
}

type yamlSource struct {
	read func() ([]byte, error)
}

// NewYAMLSource loads plans from a YAML file on every Load call.
func NewYAMLSource(path string) Source {
	return &yamlSource{read: func() ([]byte, error) { return os.ReadFile(path) }}
}

// NewYAMLReaderSource loads plans from r. The reader is consumed once.
func NewYAMLReaderSource(r io.Reader) Source {
	data, err := io.ReadAll(r)
	return &yamlSource{read: func() ([]byte, error) { return data, err }}
}

func (s *yamlSource) Load(ctx context.Context) ([]Plan, error) {
	data, err := s.read()
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	return doc.Plans, nil
}
