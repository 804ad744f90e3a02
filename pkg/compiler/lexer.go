package compiler

import (
	"fmt"
	"strconv"
	"unicode"
)

// keywords and punctuators are built from tokenTable so a spelling is
// declared in one place.
var keywords, punctuators = spellings()

func spellings() (map[string]TokenType, map[string]TokenType) {
	kw := make(map[string]TokenType)
	punct := make(map[string]TokenType)
	for tt := TokenType(0); tt < numTokenTypes; tt++ {
		sp := tokenTable[tt].spelling
		switch {
		case sp == "":
		case tt.isKeyword():
			kw[sp] = tt
		default:
			punct[sp] = tt
		}
	}
	return kw, punct
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything up to end-of-line. Also used for
// preprocessor lines, which carry no meaning here.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment runs to just past the closing "*/". The opening "/*"
// is already consumed.
func (l *Lexer) skipBlockComment() error {
	startLine := l.line
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.pos += 2
			return nil
		}
		l.advance()
	}
	return fmt.Errorf("unterminated block comment (opened on line %d)", startLine)
}

func (l *Lexer) scanIdent() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line}
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// scanInt collects a decimal or hex integer literal. The lexeme keeps the
// source spelling so the code generator can copy it verbatim.
func (l *Lexer) scanInt() (Token, error) {
	line := l.line
	start := l.pos

	digit := unicode.IsDigit
	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.pos += 2
		digit = isHexDigit
	}
	first := l.pos
	for l.pos < len(l.src) && digit(l.peek()) {
		l.advance()
	}
	if l.pos == first {
		return Token{}, fmt.Errorf("malformed hex literal on line %d", line)
	}
	if r := l.peek(); unicode.IsLetter(r) || r == '_' {
		return Token{}, fmt.Errorf("invalid suffix %q on integer literal on line %d", r, line)
	}
	return Token{Type: INTEGER, Lexeme: string(l.src[start:l.pos]), Line: line}, nil
}

var charEscapes = map[rune]rune{
	'n': '\n', 'r': '\r', 't': '\t', '0': 0,
	'\\': '\\', '\'': '\'', '"': '"',
}

// scanChar folds a character literal into an INTEGER token holding its
// decimal code.
func (l *Lexer) scanChar() (Token, error) {
	line := l.line
	l.advance()

	val := l.advance()
	switch val {
	case '\'':
		return Token{}, fmt.Errorf("empty character literal on line %d", line)
	case '\\':
		esc := l.advance()
		code, ok := charEscapes[esc]
		if !ok {
			return Token{}, fmt.Errorf("unknown escape sequence \\%c on line %d", esc, line)
		}
		val = code
	}

	if l.peek() != '\'' {
		return Token{}, fmt.Errorf("unterminated character literal on line %d", line)
	}
	l.advance()
	return Token{Type: INTEGER, Lexeme: strconv.Itoa(int(val)), Line: line}, nil
}

// skipTrivia moves past whitespace, comments and stray '#' lines.
func (l *Lexer) skipTrivia() error {
	for {
		l.skipWhitespace()
		switch {
		case l.peek() == '#':
			l.skipLineComment()
		case l.peek() == '/' && l.peek2() == '/':
			l.skipLineComment()
		case l.peek() == '/' && l.peek2() == '*':
			l.pos += 2 // "/*" holds no newline
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// scanPunct matches the longest operator or delimiter at the cursor.
func (l *Lexer) scanPunct() (Token, error) {
	line := l.line
	if two := string([]rune{l.peek(), l.peek2()}); l.peek2() != 0 {
		if tt, ok := punctuators[two]; ok {
			l.pos += 2
			return Token{tt, two, line}, nil
		}
	}
	ch := l.advance()
	if tt, ok := punctuators[string(ch)]; ok {
		return Token{tt, string(ch), line}, nil
	}
	if ch == '|' {
		return Token{}, fmt.Errorf("bitwise '|' is not supported on line %d", line)
	}
	return Token{}, fmt.Errorf("unexpected character %q on line %d", ch, line)
}

func (l *Lexer) nextToken() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}
	ch := l.peek()
	switch {
	case l.pos >= len(l.src):
		return Token{Type: EOF, Line: l.line}, nil
	case unicode.IsLetter(ch) || ch == '_':
		return l.scanIdent(), nil
	case unicode.IsDigit(ch):
		return l.scanInt()
	case ch == '\'':
		return l.scanChar()
	}
	return l.scanPunct()
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a non-nil error on the first illegal character or unterminated comment.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
