package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"strandviz/internal/domain"
)

type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (c *JSONCodec) Format() string {
	return "json"
}

func (c *JSONCodec) Parse(r io.Reader) (domain.Workflow, error) {
	var wf domain.Workflow
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&wf); err != nil {
		return domain.Workflow{}, fmt.Errorf("parse workflow json: %w", err)
	}
	return wf, nil
}

func (c *JSONCodec) Export(wf domain.Workflow, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(wf); err != nil {
		return fmt.Errorf("encode workflow json: %w", err)
	}
	return nil
}
