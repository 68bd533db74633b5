package schema

import (
	"fmt"
	"os"
)

// ParseFile reads and parses the schema file at path.
func ParseFile(path string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(string(src))
}

// Parse parses schema source text. It checks syntax only; call Resolve to
// validate references and attach relation metadata.
func Parse(src string) (*Schema, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseSchema()
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, errorf(t.pos, "expected %s, found %s", kind, t.describe())
	}
	return t, nil
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tokNewline {
		p.next()
	}
}

// endLine consumes the newline (or closing brace lookahead, or EOF) that
// terminates a property or field.
func (p *parser) endLine() error {
	switch t := p.peek(); t.kind {
	case tokNewline:
		p.next()
		return nil
	case tokRBrace, tokEOF:
		return nil
	default:
		return errorf(t.pos, "unexpected %s at end of line", t.describe())
	}
}

func (p *parser) parseSchema() (*Schema, error) {
	s := &Schema{}
	for {
		p.skipNewlines()
		t := p.peek()
		if t.kind == tokEOF {
			return s, nil
		}
		if t.kind != tokIdent {
			return nil, errorf(t.pos, "expected block keyword, found %s", t.describe())
		}

		switch t.text {
		case "datasource":
			ds, err := p.parseDatasource()
			if err != nil {
				return nil, err
			}
			s.Datasources = append(s.Datasources, ds)
		case "generator":
			g, err := p.parseGenerator()
			if err != nil {
				return nil, err
			}
			s.Generators = append(s.Generators, g)
		case "model":
			m, err := p.parseModel()
			if err != nil {
				return nil, err
			}
			s.Models = append(s.Models, m)
		default:
			return nil, errorf(t.pos, "unsupported block %q", t.text)
		}
	}
}

// parseBlockHeader consumes `<keyword> <Name> {` and returns the name.
func (p *parser) parseBlockHeader() (token, error) {
	p.next() // keyword
	name, err := p.expect(tokIdent)
	if err != nil {
		return name, err
	}
	p.skipNewlines()
	if _, err := p.expect(tokLBrace); err != nil {
		return name, err
	}
	return name, nil
}

func (p *parser) parseProperties() ([]Property, error) {
	var props []Property
	for {
		p.skipNewlines()
		t := p.peek()
		if t.kind == tokRBrace {
			p.next()
			return props, nil
		}
		key, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokEquals); err != nil {
			return nil, err
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		for _, prev := range props {
			if prev.Key == key.text {
				return nil, errorf(key.pos, "duplicate property %q", key.text)
			}
		}
		props = append(props, Property{Key: key.text, Value: v, Pos: key.pos})
		if err := p.endLine(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseDatasource() (*Datasource, error) {
	kw := p.peek()
	name, err := p.parseBlockHeader()
	if err != nil {
		return nil, err
	}
	props, err := p.parseProperties()
	if err != nil {
		return nil, err
	}

	ds := &Datasource{Name: name.text, Properties: props, Pos: kw.pos}
	for _, prop := range props {
		switch prop.Key {
		case "provider":
			if prop.Value.Kind != KindString {
				return nil, errorf(prop.Pos, "datasource provider must be a string literal")
			}
			ds.Provider = prop.Value.Text
		case "url":
			if _, ok := prop.Value.EnvVar(); !ok && prop.Value.Kind != KindString {
				return nil, errorf(prop.Pos, `datasource url must be a string or env("NAME")`)
			}
			ds.URL = prop.Value
		}
	}
	return ds, nil
}

func (p *parser) parseGenerator() (*Generator, error) {
	kw := p.peek()
	name, err := p.parseBlockHeader()
	if err != nil {
		return nil, err
	}
	props, err := p.parseProperties()
	if err != nil {
		return nil, err
	}

	g := &Generator{Name: name.text, Properties: props, Config: map[string]string{}, Pos: kw.pos}
	for _, prop := range props {
		switch prop.Key {
		case "provider":
			g.Provider = prop.Value
		case "output":
			v := prop.Value
			g.Output = &v
		default:
			if prop.Value.Kind == KindString {
				g.Config[prop.Key] = prop.Value.Text
			} else {
				g.Config[prop.Key] = prop.Value.String()
			}
		}
	}
	return g, nil
}

func (p *parser) parseModel() (*Model, error) {
	kw := p.peek()
	name, err := p.parseBlockHeader()
	if err != nil {
		return nil, err
	}

	m := &Model{Name: name.text, Pos: kw.pos}
	for {
		p.skipNewlines()
		t := p.peek()
		switch t.kind {
		case tokRBrace:
			p.next()
			return m, nil
		case tokAtAt:
			p.next()
			attr, err := p.parseAttributeBody(t.pos)
			if err != nil {
				return nil, err
			}
			m.Attributes = append(m.Attributes, attr)
			if err := p.endLine(); err != nil {
				return nil, err
			}
		case tokIdent:
			f, err := p.parseField()
			if err != nil {
				return nil, err
			}
			m.Fields = append(m.Fields, f)
		default:
			return nil, errorf(t.pos, "expected field or block attribute, found %s", t.describe())
		}
	}
}

func (p *parser) parseField() (*Field, error) {
	name := p.next()
	typ, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}

	f := &Field{Name: name.text, Type: typ.text, Pos: name.pos}
	switch p.peek().kind {
	case tokQuestion:
		p.next()
		f.Modifier = Optional
	case tokLBrack:
		p.next()
		if _, err := p.expect(tokRBrack); err != nil {
			return nil, err
		}
		f.Modifier = List
	}

	for p.peek().kind == tokAt {
		at := p.next()
		attr, err := p.parseAttributeBody(at.pos)
		if err != nil {
			return nil, err
		}
		f.Attributes = append(f.Attributes, attr)
	}

	if err := p.endLine(); err != nil {
		return nil, err
	}
	return f, nil
}

// parseAttributeBody parses what follows '@' or '@@':
// name[.name] [ '(' args ')' ].
func (p *parser) parseAttributeBody(pos Pos) (Attribute, error) {
	name, err := p.expect(tokIdent)
	if err != nil {
		return Attribute{}, err
	}
	attr := Attribute{Name: name.text, Pos: pos}
	for p.peek().kind == tokDot {
		p.next()
		part, err := p.expect(tokIdent)
		if err != nil {
			return Attribute{}, err
		}
		attr.Name += "." + part.text
	}

	if p.peek().kind != tokLParen {
		return attr, nil
	}
	p.next()
	for p.skipNewlines(); p.peek().kind != tokRParen; p.skipNewlines() {
		var arg Arg
		if p.peek().kind == tokIdent && p.peekAt(1).kind == tokColon {
			arg.Name = p.next().text
			p.next()
		}
		v, err := p.parseValue()
		if err != nil {
			return Attribute{}, err
		}
		arg.Value = v
		attr.Args = append(attr.Args, arg)

		p.skipNewlines()
		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		if p.peek().kind != tokRParen {
			t := p.peek()
			return Attribute{}, errorf(t.pos, "expected ',' or ')', found %s", t.describe())
		}
	}
	p.next()
	return attr, nil
}

func (p *parser) parseValue() (Value, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return Value{Kind: KindString, Text: t.text, Pos: t.pos}, nil
	case tokNumber:
		return Value{Kind: KindNumber, Text: t.text, Pos: t.pos}, nil
	case tokLBrack:
		items, err := p.parseList(tokRBrack)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindArray, Items: items, Pos: t.pos}, nil
	case tokIdent:
		switch t.text {
		case "true", "false":
			return Value{Kind: KindBool, Text: t.text, Bool: t.text == "true", Pos: t.pos}, nil
		}
		if p.peek().kind == tokLParen {
			p.next()
			items, err := p.parseList(tokRParen)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindCall, Text: t.text, Items: items, Pos: t.pos}, nil
		}
		return Value{Kind: KindIdent, Text: t.text, Pos: t.pos}, nil
	default:
		return Value{}, errorf(t.pos, "expected value, found %s", t.describe())
	}
}

// parseList parses comma-separated values up to and including the closing
// token. The opening token has already been consumed.
func (p *parser) parseList(closing tokenKind) ([]Value, error) {
	var items []Value
	for {
		p.skipNewlines()
		if p.peek().kind == closing {
			p.next()
			return items, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipNewlines()
		switch t := p.peek(); t.kind {
		case tokComma:
			p.next()
		case closing:
		default:
			return nil, errorf(t.pos, "expected ',' or %s, found %s", closing, t.describe())
		}
	}
}
