package rpc

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mickamy/schemagen/internal/gen"
	"github.com/mickamy/schemagen/internal/schema"
)

// Generator is the Handler that renders Go code from the datamodel it is
// sent.
type Generator struct {
	Name          string
	DefaultOutput string
	// Written, when set, is called with every path written.
	Written func(path string)
}

func (g *Generator) Manifest() Manifest {
	return Manifest{PrettyName: g.Name, DefaultOutput: g.DefaultOutput}
}

func (g *Generator) Generate(ctx context.Context, p GenerateParams) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // pass through
	}

	s, err := schema.Parse(p.Datamodel)
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	if err := schema.Resolve(s); err != nil {
		return err //nolint:wrapcheck // already prefixed
	}

	path := g.DefaultOutput
	if p.Generator.Output != nil {
		if path, err = p.Generator.Output.Resolve(); err != nil {
			return err
		}
	}
	if path == "" {
		return fmt.Errorf("rpc: generator %s has no output path", p.Generator.Name)
	}
	if !filepath.IsAbs(path) && p.SchemaPath != "" {
		path = filepath.Join(filepath.Dir(p.SchemaPath), path)
	}

	paths, err := gen.Generate(s, gen.Output{
		Path:    path,
		Format:  gen.ClientFormat(p.Generator.ConfigString("clientFormat")),
		Package: p.Generator.ConfigString("package"),
	})
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	if g.Written != nil {
		for _, p := range paths {
			g.Written(p)
		}
	}
	return nil
}
