package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota

	IDENTIFIER
	INTEGER // decimal, hex, or a character literal already folded to its code

	// Keywords. char is accepted as a synonym for int.
	INT
	CHAR
	VOID
	IF
	ELSE
	WHILE
	FOR
	RETURN
	BREAK
	CONTINUE

	LBRACE
	RBRACE
	LPAREN
	RPAREN
	SEMICOLON
	COMMA

	PLUS
	MINUS
	STAR // multiply, or unary dereference
	SLASH
	PERCENT
	AND // unary address-of only
	AND_LOGICAL
	OR_LOGICAL
	NOT
	PLUS_PLUS
	MINUS_MINUS

	ASSIGN
	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN
	PERCENT_ASSIGN

	EQUALS
	NOT_EQ
	LESS
	GREATER
	LESS_EQ
	GREATER_EQ

	numTokenTypes
)

// tokenInfo names a token type and, for keywords and punctuation, gives
// its fixed spelling.
type tokenInfo struct {
	name     string
	spelling string
}

var tokenTable = [numTokenTypes]tokenInfo{
	EOF:            {"EOF", ""},
	IDENTIFIER:     {"IDENTIFIER", ""},
	INTEGER:        {"INTEGER", ""},
	INT:            {"INT", "int"},
	CHAR:           {"CHAR", "char"},
	VOID:           {"VOID", "void"},
	IF:             {"IF", "if"},
	ELSE:           {"ELSE", "else"},
	WHILE:          {"WHILE", "while"},
	FOR:            {"FOR", "for"},
	RETURN:         {"RETURN", "return"},
	BREAK:          {"BREAK", "break"},
	CONTINUE:       {"CONTINUE", "continue"},
	LBRACE:         {"LBRACE", "{"},
	RBRACE:         {"RBRACE", "}"},
	LPAREN:         {"LPAREN", "("},
	RPAREN:         {"RPAREN", ")"},
	SEMICOLON:      {"SEMICOLON", ";"},
	COMMA:          {"COMMA", ","},
	PLUS:           {"PLUS", "+"},
	MINUS:          {"MINUS", "-"},
	STAR:           {"STAR", "*"},
	SLASH:          {"SLASH", "/"},
	PERCENT:        {"PERCENT", "%"},
	AND:            {"AND", "&"},
	AND_LOGICAL:    {"AND_LOGICAL", "&&"},
	OR_LOGICAL:     {"OR_LOGICAL", "||"},
	NOT:            {"NOT", "!"},
	PLUS_PLUS:      {"PLUS_PLUS", "++"},
	MINUS_MINUS:    {"MINUS_MINUS", "--"},
	ASSIGN:         {"ASSIGN", "="},
	PLUS_ASSIGN:    {"PLUS_ASSIGN", "+="},
	MINUS_ASSIGN:   {"MINUS_ASSIGN", "-="},
	STAR_ASSIGN:    {"STAR_ASSIGN", "*="},
	SLASH_ASSIGN:   {"SLASH_ASSIGN", "/="},
	PERCENT_ASSIGN: {"PERCENT_ASSIGN", "%="},
	EQUALS:         {"EQUALS", "=="},
	NOT_EQ:         {"NOT_EQ", "!="},
	LESS:           {"LESS", "<"},
	GREATER:        {"GREATER", ">"},
	LESS_EQ:        {"LESS_EQ", "<="},
	GREATER_EQ:     {"GREATER_EQ", ">="},
}

func (tt TokenType) String() string {
	if tt >= 0 && tt < numTokenTypes {
		return tokenTable[tt].name
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// isKeyword reports whether tt is spelled as a reserved word.
func (tt TokenType) isKeyword() bool {
	return tt >= INT && tt <= CONTINUE
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // source text, or the decimal code of a character literal
	Line   int
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
