package compiler

import (
	"fmt"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program        = (funcDef | statement)* EOF
//	funcDef        = type IDENTIFIER "(" params? ")" (block | ";")
//	type           = ("int" | "char" | "void") "*"*
//	params         = "void" | type IDENTIFIER ("," type IDENTIFIER)*
//	statement      = varDecl | block | if | while | for | return
//	               | "break" ";" | "continue" ";" | ";" | simpleStmt ";"
//	varDecl        = type declarator ("," declarator)* ";"
//	declarator     = "*"* IDENTIFIER ("=" expression)?
//	simpleStmt     = expression (assignOp expression)?
//	assignOp       = "=" | "+=" | "-=" | "*=" | "/=" | "%="
//	expression     = logical_or
//	logical_or     = logical_and ("||" logical_and)*
//	logical_and    = equality ("&&" equality)*
//	equality       = relational (("==" | "!=") relational)*
//	relational     = additive (("<" | ">" | "<=" | ">=") additive)*
//	additive       = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary          = ("-" | "+" | "&" | "*" | "!" | "++" | "--") unary | postfix
//	postfix        = primary ("++" | "--")*
//	primary        = INTEGER | IDENTIFIER ("(" args? ")")? | "(" expression ")"
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// fmtError wraps an error message with the source line where the token appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return fmt.Errorf("line %d: %s\n  |> %s", tok.Line, msg, snippet)
}

func (p *Parser) peek() Token {
	return p.peekAt(0)
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

func isTypeToken(tt TokenType) bool {
	return tt == INT || tt == CHAR || tt == VOID
}

// parseType consumes a base type and any pointer stars.
func (p *Parser) parseType() (string, error) {
	tok := p.advance()
	if !isTypeToken(tok.Type) {
		return "", p.fmtError(tok, "expected type, got %s (%q)", tok.Type, tok.Lexeme)
	}
	typ := tok.Lexeme
	for p.peek().Type == STAR {
		p.advance()
		typ += "*"
	}
	return typ, nil
}

// isFuncStart reports whether the tokens at the cursor open a function
// definition or prototype: type "*"* IDENTIFIER "(".
func (p *Parser) isFuncStart() bool {
	if !isTypeToken(p.peek().Type) {
		return false
	}
	i := 1
	for p.peekAt(i).Type == STAR {
		i++
	}
	return p.peekAt(i).Type == IDENTIFIER && p.peekAt(i+1).Type == LPAREN
}

//  Expressions

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseLogicalOr()
}

// parseBinaryLevel parses next (op next)* for any op in ops, building a
// left-associative chain.
func (p *Parser) parseBinaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().Type
		matched := false
		for _, o := range ops {
			if op == o {
				matched = true
				break
			}
		}
		if !matched {
			return expr, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
}

func (p *Parser) parseLogicalOr() (Expr, error) {
	return p.parseBinaryLevel(p.parseLogicalAnd, OR_LOGICAL)
}

func (p *Parser) parseLogicalAnd() (Expr, error) {
	return p.parseBinaryLevel(p.parseEquality, AND_LOGICAL)
}

func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinaryLevel(p.parseRelational, EQUALS, NOT_EQ)
}

func (p *Parser) parseRelational() (Expr, error) {
	return p.parseBinaryLevel(p.parseAdditive, LESS, GREATER, LESS_EQ, GREATER_EQ)
}

func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, PLUS, MINUS)
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryLevel(p.parseUnary, STAR, SLASH, PERCENT)
}

func (p *Parser) parseUnary() (Expr, error) {
	var op UnaryOp
	switch p.peek().Type {
	case MINUS:
		op = Neg
	case AND:
		op = AddrOf
	case STAR:
		op = Deref
	case PLUS_PLUS:
		op = PreInc
	case MINUS_MINUS:
		op = PreDec
	case PLUS:
		p.advance()
		return p.parseUnary()
	case NOT:
		// !x is x == 0.
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: EQUALS, Left: operand, Right: &IntLit{Value: "0"}}, nil
	default:
		return p.parsePostfix()
	}
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &UnaryExpr{Op: op, Operand: operand}, nil
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case PLUS_PLUS:
			p.advance()
			expr = &UnaryExpr{Op: PostInc, Operand: expr}
		case MINUS_MINUS:
			p.advance()
			expr = &UnaryExpr{Op: PostDec, Operand: expr}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().Type == RPAREN {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.advance()
	switch tok.Type {
	case INTEGER:
		return &IntLit{Value: tok.Lexeme}, nil

	case IDENTIFIER:
		if p.peek().Type == LPAREN {
			p.advance()
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return &CallExpr{Name: tok.Lexeme, Args: args}, nil
		}
		return &Ident{Name: tok.Lexeme}, nil

	case LPAREN:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.fmtError(tok, "unexpected token %s (%q) in expression", tok.Type, tok.Lexeme)
}

//  Statements

// parseVarDecl parses a declaration with one or more declarators. Several
// declarators come back wrapped in a Block, which has no scope effect.
func (p *Parser) parseVarDecl() (Stmt, error) {
	// Stars belong to each declarator, so only the base type is read here.
	if tok := p.advance(); !isTypeToken(tok.Type) {
		return nil, p.fmtError(tok, "expected type, got %s (%q)", tok.Type, tok.Lexeme)
	}

	var decls []Stmt
	for {
		level := 0
		for p.peek().Type == STAR {
			p.advance()
			level++
		}
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		decl := &VarDecl{Name: nameTok.Lexeme, PointerLevel: level}
		if p.peek().Type == ASSIGN {
			p.advance()
			decl.Init, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		decls = append(decls, decl)

		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}

	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	if len(decls) == 1 {
		return decls[0], nil
	}
	return &Block{Stmts: decls}, nil
}

var compoundOps = map[TokenType]TokenType{
	PLUS_ASSIGN:    PLUS,
	MINUS_ASSIGN:   MINUS,
	STAR_ASSIGN:    STAR,
	SLASH_ASSIGN:   SLASH,
	PERCENT_ASSIGN: PERCENT,
}

// parseSimpleStmt parses an assignment or expression statement without
// the trailing semicolon. x op= v becomes x = x op v.
func (p *Parser) parseSimpleStmt() (Stmt, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	op := p.peek().Type
	if op == ASSIGN {
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &Assign{Target: expr, Value: value}, nil
	}
	if binOp, ok := compoundOps[op]; ok {
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &Assign{Target: expr, Value: &BinaryExpr{Op: binOp, Left: expr, Right: value}}, nil
	}
	return &ExprStmt{X: expr}, nil
}

// parseBlock parses { statement* }. The opening brace is consumed here.
func (p *Parser) parseBlock() (*Block, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	block := &Block{}
	for p.peek().Type != RBRACE {
		if p.peek().Type == EOF {
			return nil, p.fmtError(p.peek(), "unexpected end of input, expected '}'")
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, s)
	}
	p.advance()
	return block, nil
}

func (p *Parser) parseParenCond() (Expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	cond, err := p.parseParenCond()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &If{Cond: cond, Then: then}
	if p.peek().Type == ELSE {
		p.advance()
		stmt.Else, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	cond, err := p.parseParenCond()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &While{Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	stmt := &For{}
	var err error

	switch {
	case p.peek().Type == SEMICOLON:
		p.advance()
	case isTypeToken(p.peek().Type):
		// parseVarDecl consumes the semicolon.
		if stmt.Init, err = p.parseVarDecl(); err != nil {
			return nil, err
		}
	default:
		if stmt.Init, err = p.parseSimpleStmt(); err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
	}

	if p.peek().Type != SEMICOLON {
		if stmt.Cond, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}

	if p.peek().Type != RPAREN {
		if stmt.Post, err = p.parseSimpleStmt(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	if stmt.Body, err = p.parseStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseStatement dispatches to the correct sub-parser based on the leading token.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case LBRACE:
		return p.parseBlock()

	case IF:
		p.advance()
		return p.parseIf()

	case WHILE:
		p.advance()
		return p.parseWhile()

	case FOR:
		p.advance()
		return p.parseFor()

	case BREAK:
		p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &Break{Line: tok.Line}, nil

	case CONTINUE:
		p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &Continue{Line: tok.Line}, nil

	case RETURN:
		p.advance()
		ret := &Return{}
		if p.peek().Type != SEMICOLON {
			var err error
			if ret.Value, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return ret, nil

	case SEMICOLON:
		p.advance()
		return &Block{}, nil

	case INT, CHAR, VOID:
		return p.parseVarDecl()

	case EOF:
		return nil, p.fmtError(tok, "unexpected end of input")
	}

	s, err := p.parseSimpleStmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return s, nil
}

// parseFuncDef parses a definition or a prototype. A prototype yields nil.
func (p *Parser) parseFuncDef() (*FuncDef, error) {
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	var params []Param
	if p.peek().Type == VOID && p.peekAt(1).Type == RPAREN {
		p.advance()
	}
	if p.peek().Type != RPAREN {
		for {
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			paramName, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Type: typ, Name: paramName.Lexeme})

			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	if p.peek().Type == SEMICOLON {
		p.advance()
		return nil, nil
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FuncDef{ReturnType: retType, Name: nameTok.Lexeme, Params: params, Body: body}, nil
}

// Parse builds a Program. Statements outside any function are kept as
// TopLevelStmt nodes.
func Parse(tokens []Token, rawSource string) (*Program, error) {
	p := NewParser(tokens, rawSource)
	prog := &Program{}
	for p.peek().Type != EOF {
		if p.isFuncStart() {
			fn, err := p.parseFuncDef()
			if err != nil {
				return nil, err
			}
			if fn != nil {
				prog.Decls = append(prog.Decls, fn)
			}
			continue
		}

		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, &TopLevelStmt{Stmt: s})
	}
	return prog, nil
}
