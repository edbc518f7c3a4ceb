package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ruleFile is the wrapped form of a rules document: {rules: [...]}.
type ruleFile struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// DecodeRules parses a rules document. name picks the format by extension:
// .json is JSON, anything else YAML. The document is either a list of rules
// or a mapping with a rules key. Runtime state is never read from files.
func DecodeRules(name string, data []byte) ([]Rule, error) {
	var (
		list []Rule
		err  error
	)
	if strings.EqualFold(filepath.Ext(name), ".json") {
		list, err = decodeJSON(data)
	} else {
		list, err = decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	for i := range list {
		list[i].State = State{}
	}
	return list, nil
}

func decodeJSON(data []byte) ([]Rule, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var f ruleFile
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, err
		}
		return f.Rules, nil
	}
	var list []Rule
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func decodeYAML(data []byte) ([]Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []Rule
		if err := root.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	case yaml.MappingNode:
		var f ruleFile
		if err := root.Decode(&f); err != nil {
			return nil, err
		}
		return f.Rules, nil
	}
	return nil, fmt.Errorf("expected a list of rules or a rules mapping, got %s", kindName(root.Kind))
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	}
	return "an unexpected node"
}

// EncodeRules renders rules as YAML, the format DecodeRules reads back.
func EncodeRules(list []Rule) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ruleFile{Rules: list}); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	return buf.Bytes(), nil
}
