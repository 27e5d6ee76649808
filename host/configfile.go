package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v2"
)

// Block is a configuration block: the file root, http, server or location.
type Block struct {
	Type  string
	Label string
	File  string
	Line  int

	Directives []Directive
	Blocks     []*Block
}

// Directive is one directive with its arguments.
type Directive struct {
	Name string
	Args []string
	File string
	Line int
}

var ErrConfigSyntax = errors.New("configuration syntax error")

// LoadFile reads a configuration file. Files ending in .yaml or .yml are
// YAML; everything else is HCL.
func LoadFile(path string) (*Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(path, data)
	default:
		return ParseHCL(path, data)
	}
}

// ParseHCL parses HCL source into a block tree. Attributes keep their
// source order.
func ParseHCL(filename string, src []byte) (*Block, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrConfigSyntax, diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected body type", ErrConfigSyntax, filename)
	}
	root := &Block{File: filename, Line: 1}
	if err := hclBody(root, body); err != nil {
		return nil, err
	}
	return root, nil
}

func hclBody(b *Block, body *hclsyntax.Body) error {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	for _, a := range attrs {
		v, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("%w: %s", ErrConfigSyntax, diags.Error())
		}
		args, err := ctyArgs(v)
		if err != nil {
			return fmt.Errorf("%w: %q directive %v in %s:%d", ErrConfigSyntax, a.Name, err, a.SrcRange.Filename, a.SrcRange.Start.Line)
		}
		b.Directives = append(b.Directives, Directive{
			Name: a.Name,
			Args: args,
			File: a.SrcRange.Filename,
			Line: a.SrcRange.Start.Line,
		})
	}

	for _, blk := range body.Blocks {
		child := &Block{
			Type: blk.Type,
			File: blk.TypeRange.Filename,
			Line: blk.TypeRange.Start.Line,
		}
		switch len(blk.Labels) {
		case 0:
		case 1:
			child.Label = blk.Labels[0]
		default:
			return fmt.Errorf("%w: %q block takes at most one label in %s:%d", ErrConfigSyntax, blk.Type, child.File, child.Line)
		}
		if err := hclBody(child, blk.Body); err != nil {
			return err
		}
		b.Blocks = append(b.Blocks, child)
	}
	return nil
}

// ctyArgs converts an attribute value to directive arguments.
func ctyArgs(v cty.Value) ([]string, error) {
	if v.IsNull() || !v.IsWhollyKnown() {
		return nil, errors.New("has no value")
	}
	ty := v.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		var args []string
		it := v.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			s, err := ctyScalar(ev)
			if err != nil {
				return nil, err
			}
			args = append(args, s)
		}
		return args, nil
	}
	s, err := ctyScalar(v)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func ctyScalar(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", errors.New("has a null argument")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int(nil)
			return i.String(), nil
		}
		return bf.Text('f', -1), nil
	case cty.Bool:
		if v.True() {
			return "on", nil
		}
		return "off", nil
	}
	return "", fmt.Errorf("has an unsupported %s argument", v.Type().FriendlyName())
}

// ParseYAML parses YAML source into a block tree. Mapping keys are
// directives, except "http", "server" (a mapping or a list of mappings) and
// "location" (a mapping from prefix to body). YAML carries no line numbers
// through the decoder, so directives report line 0 and errors name only the
// file.
func ParseYAML(filename string, src []byte) (*Block, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigSyntax, err)
	}
	root := &Block{File: filename}
	if err := yamlBody(root, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigSyntax, filename, err)
	}
	return root, nil
}

func yamlBody(b *Block, body yaml.MapSlice) error {
	for _, item := range body {
		key := fmt.Sprint(item.Key)
		switch key {
		case "http":
			m, ok := item.Value.(yaml.MapSlice)
			if !ok {
				return errors.New(`"http" must be a mapping`)
			}
			if err := yamlChild(b, "http", "", m); err != nil {
				return err
			}
		case "server":
			var servers []yaml.MapSlice
			switch v := item.Value.(type) {
			case yaml.MapSlice:
				servers = append(servers, v)
			case []any:
				for _, e := range v {
					m, ok := e.(yaml.MapSlice)
					if !ok {
						return errors.New(`"server" list entries must be mappings`)
					}
					servers = append(servers, m)
				}
			default:
				return errors.New(`"server" must be a mapping or a list`)
			}
			for _, m := range servers {
				if err := yamlChild(b, "server", "", m); err != nil {
					return err
				}
			}
		case "location":
			m, ok := item.Value.(yaml.MapSlice)
			if !ok {
				return errors.New(`"location" must map prefixes to blocks`)
			}
			for _, loc := range m {
				body, ok := loc.Value.(yaml.MapSlice)
				if !ok && loc.Value != nil {
					return fmt.Errorf("location %v must be a mapping", loc.Key)
				}
				if err := yamlChild(b, "location", fmt.Sprint(loc.Key), body); err != nil {
					return err
				}
			}
		default:
			args, err := yamlArgs(item.Value)
			if err != nil {
				return fmt.Errorf("%q directive %v", key, err)
			}
			b.Directives = append(b.Directives, Directive{Name: key, Args: args, File: b.File})
		}
	}
	return nil
}

func yamlChild(parent *Block, typ, label string, body yaml.MapSlice) error {
	child := &Block{Type: typ, Label: label, File: parent.File}
	if err := yamlBody(child, body); err != nil {
		return err
	}
	parent.Blocks = append(parent.Blocks, child)
	return nil
}

func yamlArgs(v any) ([]string, error) {
	if list, ok := v.([]any); ok {
		args := make([]string, 0, len(list))
		for _, e := range list {
			s, err := yamlScalar(e)
			if err != nil {
				return nil, err
			}
			args = append(args, s)
		}
		return args, nil
	}
	s, err := yamlScalar(v)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func yamlScalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		if x {
			return "on", nil
		}
		return "off", nil
	case int, int64, uint64, float64:
		return fmt.Sprint(x), nil
	case nil:
		return "", errors.New("has no value")
	}
	return "", fmt.Errorf("has an unsupported argument %v", v)
}
