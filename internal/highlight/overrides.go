// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package highlight

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"highlight-locator/internal/locate"
)

// SearchOverrides are the search options one record sets explicitly. Fields
// left nil keep the validator's value.
type SearchOverrides struct {
	NormalizeQuotes *bool
	PartialMatch    *bool
	CaseSensitive   *bool
	MaxTypos        *int
	UseLLMFallback  *bool
	LLMContext      *string
	PluginName      *string
}

// Apply returns base with every set field replaced.
func (o *SearchOverrides) Apply(base locate.Options) locate.Options {
	if o == nil {
		return base
	}
	setIf(&base.NormalizeQuotes, o.NormalizeQuotes)
	setIf(&base.PartialMatch, o.PartialMatch)
	setIf(&base.CaseSensitive, o.CaseSensitive)
	setIf(&base.MaxTypos, o.MaxTypos)
	setIf(&base.UseLLMFallback, o.UseLLMFallback)
	setIf(&base.LLMContext, o.LLMContext)
	setIf(&base.PluginName, o.PluginName)
	return base
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// UnmarshalYAML accepts camelCase keys like the rest of a record, and the
// snake_case spelling used in config files. Unknown keys are an error so a
// misspelled option never silently falls back to the defaults.
func (o *SearchOverrides) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("options: expected a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]

		var err error
		switch strings.ToLower(strings.ReplaceAll(key, "_", "")) {
		case "normalizequotes":
			err = decodeField(value, &o.NormalizeQuotes)
		case "partialmatch":
			err = decodeField(value, &o.PartialMatch)
		case "casesensitive":
			err = decodeField(value, &o.CaseSensitive)
		case "maxtypos":
			err = decodeField(value, &o.MaxTypos)
			if err == nil && *o.MaxTypos < 0 {
				err = fmt.Errorf("must not be negative")
			}
		case "usellmfallback":
			err = decodeField(value, &o.UseLLMFallback)
		case "llmcontext":
			err = decodeField(value, &o.LLMContext)
		case "pluginname":
			err = decodeField(value, &o.PluginName)
		default:
			return fmt.Errorf("options: unknown field %q", key)
		}
		if err != nil {
			return fmt.Errorf("options.%s: %w", key, err)
		}
	}
	return nil
}

func decodeField[T any](node *yaml.Node, dst **T) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
