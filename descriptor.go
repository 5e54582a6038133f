package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// tableDescriptor is the TOML form of a TableSchema, read by render, apply
// and check and written by dump --format toml.
type tableDescriptor struct {
	Name        string                 `toml:"name"`
	Options     optionsDescriptor      `toml:"options"`
	Columns     []columnDescriptor     `toml:"columns"`
	Constraints []constraintDescriptor `toml:"constraints,omitempty"`
	Indexes     []indexDescriptor      `toml:"indexes,omitempty"`
}

type optionsDescriptor struct {
	Engine        string `toml:"engine,omitempty"`
	Charset       string `toml:"charset,omitempty"`
	Collation     string `toml:"collation,omitempty"`
	AutoIncrement int64  `toml:"auto_increment,omitempty"`
	Temporary     bool   `toml:"temporary,omitempty"`
}

type columnDescriptor struct {
	Name          string `toml:"name"`
	Type          string `toml:"type"`
	Limit         int    `toml:"limit,omitempty"`
	Precision     int    `toml:"precision,omitempty"`
	Scale         int    `toml:"scale,omitempty"`
	Null          *bool  `toml:"null,omitempty"` // default true
	Default       any    `toml:"default"`
	Unsigned      bool   `toml:"unsigned,omitempty"`
	Fixed         bool   `toml:"fixed,omitempty"`
	Collate       string `toml:"collate,omitempty"`
	Comment       string `toml:"comment,omitempty"`
	AutoIncrement bool   `toml:"auto_increment,omitempty"`
}

type constraintDescriptor struct {
	Name    string   `toml:"name,omitempty"`
	Kind    string   `toml:"kind"`
	Columns []string `toml:"columns"`
	// References is [table, column...].
	References []string `toml:"references,omitempty"`
	Update     string   `toml:"update,omitempty"`
	Delete     string   `toml:"delete,omitempty"`
}

type indexDescriptor struct {
	Name    string   `toml:"name"`
	Kind    string   `toml:"kind,omitempty"`
	Columns []string `toml:"columns"`
}

// loadTableDescriptor reads a TOML table descriptor file.
func loadTableDescriptor(path string) (*TableSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	t, err := decodeTableDescriptor(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func decodeTableDescriptor(data string) (*TableSchema, error) {
	var d tableDescriptor
	md, err := toml.Decode(data, &d)
	if err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown descriptor keys: %s", strings.Join(keys, ", "))
	}
	return d.build()
}

func (d tableDescriptor) build() (*TableSchema, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, invalidSchema("descriptor: name is required")
	}
	t := NewTableSchema(name)
	t.SetOptions(TableOptions{
		Engine:        d.Options.Engine,
		Charset:       d.Options.Charset,
		Collation:     d.Options.Collation,
		AutoIncrement: d.Options.AutoIncrement,
		Temporary:     d.Options.Temporary,
	})

	for _, cd := range d.Columns {
		c := Column{
			Name:          cd.Name,
			Type:          cd.Type,
			Limit:         cd.Limit,
			Precision:     cd.Precision,
			Scale:         cd.Scale,
			NotNull:       cd.Null != nil && !*cd.Null,
			Default:       cd.Default,
			Unsigned:      cd.Unsigned,
			Fixed:         cd.Fixed,
			Collate:       cd.Collate,
			Comment:       cd.Comment,
			AutoIncrement: cd.AutoIncrement,
		}
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}

	for _, cd := range d.Constraints {
		kind, err := parseConstraintKind(cd.Kind)
		if err != nil {
			return nil, invalidSchema("table %s: constraint %s: %v", name, cd.Name, err)
		}
		c := Constraint{
			Name:    cd.Name,
			Kind:    kind,
			Columns: cd.Columns,
			Update:  ReferentialAction(cd.Update),
			Delete:  ReferentialAction(cd.Delete),
		}
		if len(cd.References) > 0 {
			c.References = &Reference{Table: cd.References[0], Columns: cd.References[1:]}
		}
		if err := t.AddConstraint(c); err != nil {
			return nil, err
		}
	}

	for _, id := range d.Indexes {
		if err := t.AddIndex(Index{Name: id.Name, Kind: IndexKind(id.Kind), Columns: id.Columns}); err != nil {
			return nil, err
		}
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func descriptorFromTable(t *TableSchema) tableDescriptor {
	d := tableDescriptor{
		Name: t.name,
		Options: optionsDescriptor{
			Engine:        t.options.Engine,
			Charset:       t.options.Charset,
			Collation:     t.options.Collation,
			AutoIncrement: t.options.AutoIncrement,
			Temporary:     t.options.Temporary,
		},
	}
	for _, c := range t.columns {
		cd := columnDescriptor{
			Name:          c.Name,
			Type:          c.Type,
			Limit:         c.Limit,
			Precision:     c.Precision,
			Scale:         c.Scale,
			Default:       c.Default,
			Unsigned:      c.Unsigned,
			Fixed:         c.Fixed,
			Collate:       c.Collate,
			Comment:       c.Comment,
			AutoIncrement: c.AutoIncrement,
		}
		if c.NotNull {
			null := false
			cd.Null = &null
		}
		d.Columns = append(d.Columns, cd)
	}
	for _, c := range t.constraints {
		cd := constraintDescriptor{Name: c.Name, Kind: c.Kind.String(), Columns: c.Columns}
		if c.Kind == ConstraintForeign && c.References != nil {
			cd.References = append([]string{c.References.Table}, c.References.Columns...)
			cd.Update = string(c.Update)
			cd.Delete = string(c.Delete)
		}
		d.Constraints = append(d.Constraints, cd)
	}
	for _, idx := range t.indexes {
		d.Indexes = append(d.Indexes, indexDescriptor{Name: idx.Name, Kind: string(idx.Kind), Columns: idx.Columns})
	}
	return d
}

// encodeTableDescriptor renders t in the descriptor format.
func encodeTableDescriptor(t *TableSchema) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(descriptorFromTable(t)); err != nil {
		return "", fmt.Errorf("encode descriptor for %s: %w", t.name, err)
	}
	return buf.String(), nil
}
