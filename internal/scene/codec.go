package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// wireComponent is the on-disk shape of a component: a kind tag plus an
// optional data mapping. It stays compatible with files written by the runtime.
type wireComponent struct {
	TypeID string    `yaml:"type_id"`
	Data   yaml.Node `yaml:"data,omitempty"`
}

// Parse decodes a scene document. Known component kinds are decoded strictly:
// a data field the kind does not own is an error.
func Parse(data []byte) (*Doc, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var root yaml.Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty scene document")
		}
		return nil, err
	}
	if err := checkRequired(&root); err != nil {
		return nil, err
	}

	var doc Doc
	if err := root.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// checkRequired rejects documents missing the entities list, or entities
// missing their id or components.
func checkRequired(root *yaml.Node) error {
	n := root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("scene document must be a mapping")
	}
	entities := mappingValue(n, "entities")
	if entities == nil {
		return fmt.Errorf("missing field entities")
	}
	if entities.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: entities must be a sequence", entities.Line)
	}
	for i, e := range entities.Content {
		if e.Kind != yaml.MappingNode {
			return fmt.Errorf("entity %d: must be a mapping", i)
		}
		for _, field := range []string{"id", "components"} {
			if mappingValue(e, field) == nil {
				return fmt.Errorf("entity %d: missing field %s", i, field)
			}
		}
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// Marshal encodes doc as pretty YAML with a 2-space indent and flow-style vectors.
func Marshal(doc *Doc) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalYAML implements yaml.Marshaler.
func (l ComponentList) MarshalYAML() (any, error) {
	out := make([]wireComponent, 0, len(l))
	for i, c := range l {
		if c == nil {
			return nil, fmt.Errorf("component %d: nil component", i)
		}
		data, err := encodeData(c)
		if err != nil {
			return nil, fmt.Errorf("component %d (%s): %w", i, c.TypeID(), err)
		}
		w := wireComponent{TypeID: c.TypeID()}
		if data != nil {
			w.Data = *data
		}
		out = append(out, w)
	}
	return out, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *ComponentList) UnmarshalYAML(value *yaml.Node) error {
	var wire []wireComponent
	if err := value.Decode(&wire); err != nil {
		return err
	}

	list := make(ComponentList, 0, len(wire))
	for i, w := range wire {
		if w.TypeID == "" {
			return fmt.Errorf("component %d: missing type_id", i)
		}
		var data *yaml.Node
		if w.Data.Kind != 0 {
			data = &w.Data
		}
		c, err := decodeData(w.TypeID, data)
		if err != nil {
			return fmt.Errorf("component %d (%s): %w", i, w.TypeID, err)
		}
		list = append(list, c)
	}
	*l = list
	return nil
}

func encodeData(c Component) (*yaml.Node, error) {
	var v any
	switch c := c.(type) {
	case Camera3d:
		return nil, nil
	case Opaque:
		if c.Fields == nil {
			return nil, nil
		}
		return valueNode(c.Fields)
	default:
		v = c
	}

	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	if node.Kind == yaml.MappingNode && len(node.Content) == 0 {
		return nil, nil
	}
	return &node, nil
}

func decodeData(kind string, data *yaml.Node) (Component, error) {
	if data != nil && data.Kind == yaml.ScalarNode && data.Tag == "!!null" {
		data = nil
	}

	switch kind {
	case KindTransform:
		var t Transform
		if err := decodeStrict(data, &t); err != nil {
			return nil, err
		}
		return t, nil
	case KindMesh3d:
		var m Mesh3d
		if err := decodeStrict(data, &m); err != nil {
			return nil, err
		}
		if m.Shape != nil && *m.Shape != ShapeCircle && *m.Shape != ShapeCuboid {
			return nil, fmt.Errorf("unknown shape %q (want %s or %s)", *m.Shape, ShapeCircle, ShapeCuboid)
		}
		return m, nil
	case KindMaterial3d:
		var m Material3d
		if err := decodeStrict(data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindPointLight:
		var p PointLight
		if err := decodeStrict(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindCamera3d:
		var c struct{}
		if err := decodeStrict(data, &c); err != nil {
			return nil, err
		}
		return Camera3d{}, nil
	default:
		o := Opaque{ID: kind}
		if data != nil {
			if err := data.Decode(&o.Fields); err != nil {
				return nil, err
			}
			if o.Fields == nil {
				o.Fields = map[string]any{}
			}
		}
		return o, nil
	}
}

// decodeStrict decodes a data node into out, rejecting fields out does not declare.
// yaml.Node.Decode has no strict mode, so the node is re-encoded and read back
// through a decoder with KnownFields enabled.
func decodeStrict(data *yaml.Node, out any) error {
	if data == nil {
		return nil
	}
	if data.Kind != yaml.MappingNode {
		return fmt.Errorf("data must be a mapping")
	}
	raw, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// valueNode builds the node of a loosely typed value with explicit scalar
// tags, so integral floats keep their float type across a round trip.
func valueNode(v any) (*yaml.Node, error) {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			val, err := valueNode(v[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			n.Content = append(n.Content, scalar("!!str", k), val)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, item := range v {
			val, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			if val.Kind != yaml.ScalarNode {
				n.Style = 0
			}
			n.Content = append(n.Content, val)
		}
		return n, nil
	case nil:
		return scalar("!!null", "null"), nil
	case string:
		return scalar("!!str", v), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(v)), nil
	case int:
		return scalar("!!int", strconv.Itoa(v)), nil
	case int64:
		return scalar("!!int", strconv.FormatInt(v, 10)), nil
	case uint64:
		return scalar("!!int", strconv.FormatUint(v, 10)), nil
	case float64:
		return scalar("!!float", formatFloat(v)), nil
	default:
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return &n, nil
	}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
