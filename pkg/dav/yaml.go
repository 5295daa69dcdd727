package dav

import (
	"bytes"
	"fmt"

	"github.com/mvandenburgh/dandidav/pkg/dandi"
	"gopkg.in/yaml.v3"
)

// MetadataYAML re-encodes a version's JSON metadata document as block-style
// YAML. Key order and scalar types are kept as they appear in the JSON.
func MetadataYAML(md dandi.VersionMetadata) ([]byte, error) {
	// JSON is a subset of YAML, so the document parses as-is into a node
	// tree that remembers key order.
	var doc yaml.Node
	if err := yaml.Unmarshal(md, &doc); err != nil {
		return nil, fmt.Errorf("parse version metadata: %w", err)
	}
	if doc.Kind == 0 {
		return nil, fmt.Errorf("parse version metadata: empty document")
	}
	blockStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode version metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode version metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// blockStyle drops the flow and quoting styles the JSON input implies.
// Strings that would read back as another type stay quoted.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
