package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"stockbt/internal/metrics"
)

// EncodeRecord 按固定 key 顺序编码指标记录；format 为 json 或 yaml。
func EncodeRecord(s metrics.Summary, format string) ([]byte, error) {
	rec := s.Record()
	switch format {
	case "yaml":
		return encodeYAML(rec)
	case "json", "":
		return encodeJSON(rec)
	default:
		return nil, fmt.Errorf("unsupported record format: %s", format)
	}
}

func encodeJSON(rec map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, key := range metrics.RecordKeys {
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(rec[key])
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
		if i < len(metrics.RecordKeys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func encodeYAML(rec map[string]any) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range metrics.RecordKeys {
		val := &yaml.Node{}
		if err := val.Encode(rec[key]); err != nil {
			return nil, err
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			val,
		)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
