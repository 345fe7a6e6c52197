package codec

import (
	"fmt"
	"io"

	"strandviz/internal/domain"

	"gopkg.in/yaml.v3"
)

type YAMLCodec struct{}

func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

func (c *YAMLCodec) Format() string {
	return "yaml"
}

func (c *YAMLCodec) Parse(r io.Reader) (domain.Workflow, error) {
	var wf domain.Workflow
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&wf); err != nil {
		return domain.Workflow{}, fmt.Errorf("parse workflow yaml: %w", err)
	}
	return wf, nil
}

func (c *YAMLCodec) Export(wf domain.Workflow, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	if err := encoder.Encode(wf); err != nil {
		return fmt.Errorf("encode workflow yaml: %w", err)
	}
	return nil
}
