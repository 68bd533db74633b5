package schema

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokString
	tokNumber
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
	tokLBrack
	tokRBrack
	tokComma
	tokColon
	tokEquals
	tokAt
	tokAtAt
	tokQuestion
	tokDot
)

var tokenNames = map[tokenKind]string{
	tokEOF:      "end of file",
	tokNewline:  "newline",
	tokIdent:    "identifier",
	tokString:   "string",
	tokNumber:   "number",
	tokLBrace:   "'{'",
	tokRBrace:   "'}'",
	tokLParen:   "'('",
	tokRParen:   "')'",
	tokLBrack:   "'['",
	tokRBrack:   "']'",
	tokComma:    "','",
	tokColon:    "':'",
	tokEquals:   "'='",
	tokAt:       "'@'",
	tokAtAt:     "'@@'",
	tokQuestion: "'?'",
	tokDot:      "'.'",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	text string
	pos  Pos
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent, tokNumber:
		return fmt.Sprintf("%s %q", t.kind, t.text)
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return t.kind.String()
	}
}

var punct = map[rune]tokenKind{
	'{': tokLBrace,
	'}': tokRBrace,
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBrack,
	']': tokRBrack,
	',': tokComma,
	':': tokColon,
	'=': tokEquals,
	'?': tokQuestion,
	'.': tokDot,
}

// lex splits src into tokens. Comments ("//" and "///") are dropped;
// newlines are kept because they terminate properties and fields.
func lex(src string) ([]token, error) {
	runes := []rune(src)
	var toks []token
	line, col := 1, 1

	advance := func(n int) { col += n }

	for i := 0; i < len(runes); {
		r := runes[i]
		pos := Pos{Line: line, Col: col}

		switch {
		case r == '\n':
			toks = append(toks, token{kind: tokNewline, pos: pos})
			i++
			line++
			col = 1
		case r == ' ' || r == '\t' || r == '\r':
			i++
			advance(1)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			for i < len(runes) && runes[i] != '\n' {
				i++
				advance(1)
			}
		case r == '@':
			if i+1 < len(runes) && runes[i+1] == '@' {
				toks = append(toks, token{kind: tokAtAt, text: "@@", pos: pos})
				i += 2
				advance(2)
			} else {
				toks = append(toks, token{kind: tokAt, text: "@", pos: pos})
				i++
				advance(1)
			}
		case r == '"':
			var b strings.Builder
			j := i + 1
			closed := false
			for j < len(runes) {
				c := runes[j]
				if c == '\n' {
					break
				}
				if c == '\\' && j+1 < len(runes) {
					switch runes[j+1] {
					case 'n':
						b.WriteRune('\n')
					case 't':
						b.WriteRune('\t')
					default:
						b.WriteRune(runes[j+1])
					}
					j += 2
					continue
				}
				if c == '"' {
					closed = true
					j++
					break
				}
				b.WriteRune(c)
				j++
			}
			if !closed {
				return nil, &Error{Pos: pos, Msg: "unterminated string literal"}
			}
			toks = append(toks, token{kind: tokString, text: b.String(), pos: pos})
			advance(j - i)
			i = j
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: string(runes[i:j]), pos: pos})
			advance(j - i)
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[i:j]), pos: pos})
			advance(j - i)
			i = j
		default:
			kind, ok := punct[r]
			if !ok {
				return nil, &Error{Pos: pos, Msg: fmt.Sprintf("unexpected character %q", r)}
			}
			toks = append(toks, token{kind: kind, text: string(r), pos: pos})
			i++
			advance(1)
		}
	}

	toks = append(toks, token{kind: tokEOF, pos: Pos{Line: line, Col: col}})
	return toks, nil
}
