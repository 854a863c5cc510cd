// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package highlight

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"highlight-locator/internal/lines"
)

// record is the wire shape of one candidate. JSON input decodes through the
// same YAML tags since JSON is a YAML subset.
type record struct {
	StartLineIndex  *int             `yaml:"startLineIndex"`
	StartCharacters string           `yaml:"startCharacters"`
	EndLineIndex    *int             `yaml:"endLineIndex"`
	EndCharacters   string           `yaml:"endCharacters"`
	StartOffset     *int             `yaml:"startOffset"`
	EndOffset       *int             `yaml:"endOffset"`
	QuotedText      string           `yaml:"quotedText"`
	SearchText      *string          `yaml:"searchText"`
	Options         *SearchOverrides `yaml:"options"`
	Description     string           `yaml:"description"`
	Importance      *float64         `yaml:"importance"`
	Grade           *float64         `yaml:"grade"`
}

// DecodeCandidates parses a YAML or JSON batch. The top level is either a
// list of records or a mapping with a "highlights" list. A record that does
// not decode still yields a candidate so the validator can report it at
// its index; only an unreadable document is an error.
func DecodeCandidates(data []byte) ([]Candidate, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse highlights: %w", err)
	}
	if root.Kind == 0 {
		return nil, nil
	}

	list := &root
	if list.Kind == yaml.DocumentNode && len(list.Content) > 0 {
		list = list.Content[0]
	}
	if list.Kind == yaml.MappingNode {
		var found *yaml.Node
		for i := 0; i+1 < len(list.Content); i += 2 {
			if list.Content[i].Value == "highlights" {
				found = list.Content[i+1]
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("highlights: expected a list or a mapping with a highlights key")
		}
		list = found
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("highlights: expected a list, got %s", nodeKind(list.Kind))
	}

	candidates := make([]Candidate, 0, len(list.Content))
	for _, item := range list.Content {
		candidates = append(candidates, decodeRecord(item))
	}
	return candidates, nil
}

func decodeRecord(node *yaml.Node) Candidate {
	var r record
	if err := node.Decode(&r); err != nil {
		return Candidate{Spec: malformedSpec{reason: fmt.Sprintf("line %d: %v", node.Line, err)}}
	}
	c := Candidate{
		Description: r.Description,
		Importance:  r.Importance,
		Grade:       r.Grade,
	}

	switch {
	case r.StartLineIndex != nil:
		if r.EndLineIndex == nil {
			c.Spec = malformedSpec{reason: "startLineIndex without endLineIndex"}
			break
		}
		c.Spec = LineSpec{lines.LineSnippetHighlight{
			StartLineIndex:  *r.StartLineIndex,
			StartCharacters: r.StartCharacters,
			EndLineIndex:    *r.EndLineIndex,
			EndCharacters:   r.EndCharacters,
		}}
	case r.StartOffset != nil:
		if r.EndOffset == nil {
			c.Spec = malformedSpec{reason: "startOffset without endOffset"}
			break
		}
		c.Spec = OffsetSpec{
			StartOffset: *r.StartOffset,
			EndOffset:   *r.EndOffset,
			QuotedText:  r.QuotedText,
		}
	case r.SearchText != nil:
		c.Spec = SearchSpec{SearchText: *r.SearchText, Options: r.Options}
	case r.QuotedText != "":
		// quoted text alone is searched for
		c.Spec = SearchSpec{SearchText: r.QuotedText, Options: r.Options}
	default:
		c.Spec = malformedSpec{reason: "no startLineIndex, startOffset or searchText"}
	}
	return c
}

func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}
