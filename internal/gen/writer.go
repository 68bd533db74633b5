package gen

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/mickamy/schemagen/internal/schema"
)

// ClientFormat selects how generated code is laid out on disk.
type ClientFormat string

const (
	// FormatFolder writes one file per model into a directory.
	FormatFolder ClientFormat = "folder"
	// FormatFile writes everything into a single file.
	FormatFile ClientFormat = "file"
)

// Output describes where and how to write generated code.
type Output struct {
	Path    string
	Format  ClientFormat // FormatFolder when empty
	Package string       // derived from Path when empty
}

// OutputFor builds the Output for generator g. dir is the directory of the
// schema file; a relative output path is resolved against it. override, when
// non-empty, replaces the generator's output path.
func OutputFor(g *schema.Generator, dir, override string) (Output, error) {
	var out Output
	switch {
	case override != "":
		out.Path = override
	case g.Output != nil:
		if name, ok := g.Output.EnvVar(); ok {
			v, ok := os.LookupEnv(name)
			if !ok {
				return Output{}, fmt.Errorf("gen: generator %s: environment variable %s is not set", g.Name, name)
			}
			out.Path = v
		} else {
			out.Path = g.Output.Text
		}
	default:
		out.Path = "./query"
	}
	if !filepath.IsAbs(out.Path) && override == "" {
		out.Path = filepath.Join(dir, out.Path)
	}
	out.Format = ClientFormat(g.Config["clientFormat"])
	out.Package = g.Config["package"]
	return out, nil
}

func (o Output) validate() (ClientFormat, error) {
	f := o.Format
	if f == "" {
		f = FormatFolder
	}
	if o.Path == "" {
		return "", errors.New("gen: output path is empty")
	}
	ext := filepath.Ext(o.Path)
	switch f {
	case FormatFolder:
		if ext != "" {
			return "", fmt.Errorf("gen: output %q must be a directory when clientFormat is %q", o.Path, f)
		}
	case FormatFile:
		if ext != ".go" {
			return "", fmt.Errorf("gen: output %q must be a .go file when clientFormat is %q", o.Path, f)
		}
	default:
		return "", fmt.Errorf("gen: unknown clientFormat %q (use %q or %q)", f, FormatFolder, FormatFile)
	}
	return f, nil
}

// PackageName returns o.Package, or a package name derived from the output
// directory.
func (o Output) PackageName() string {
	if o.Package != "" {
		return o.Package
	}
	dir := o.Path
	if filepath.Ext(dir) != "" {
		dir = filepath.Dir(dir)
	}
	abs, err := filepath.Abs(dir)
	if err == nil {
		dir = abs
	}
	return sanitizePackage(filepath.Base(dir))
}

func sanitizePackage(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	pkg := b.String()
	if pkg == "" || unicode.IsDigit(rune(pkg[0])) {
		return "query"
	}
	return pkg
}

// Generate renders s and writes it to out, removing files from a previous
// run first. It returns the paths written.
func Generate(s *schema.Schema, out Output) ([]string, error) {
	format, err := out.validate()
	if err != nil {
		return nil, err
	}
	opt := RenderOption{Package: out.PackageName()}

	if format == FormatFile {
		src, err := RenderSingle(s, opt)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(out.Path), 0o755); err != nil {
			return nil, fmt.Errorf("gen: %w", err)
		}
		if ok, err := isGenerated(out.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		} else if err == nil && !ok {
			return nil, fmt.Errorf("gen: refusing to overwrite %s: not generated by schemagen", out.Path)
		}
		if err := os.WriteFile(out.Path, src, 0o644); err != nil { //nolint:gosec // generated source is not secret
			return nil, fmt.Errorf("gen: %w", err)
		}
		return []string{out.Path}, nil
	}

	files, err := Render(s, opt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(out.Path, 0o755); err != nil {
		return nil, fmt.Errorf("gen: %w", err)
	}
	if err := removeGenerated(out.Path); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(out.Path, f.Name)
		if err := os.WriteFile(p, f.Content, 0o644); err != nil { //nolint:gosec // generated source is not secret
			return nil, fmt.Errorf("gen: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// removeGenerated deletes the files in dir that carry Header, leaving
// hand-written files alone.
func removeGenerated(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("gen: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".go" {
			continue
		}
		p := filepath.Join(dir, e.Name())
		ok, err := isGenerated(p)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("gen: %w", err)
		}
	}
	return nil
}

func isGenerated(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("gen: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		// empty files are treated as ours
		return sc.Err() == nil, sc.Err() //nolint:wrapcheck // pass through
	}
	return sc.Text() == Header, nil
}
