package parser

import (
	"reactivec/internal/ast"
	"reactivec/internal/token"
)

// parseFunctionDecl parses `function name(params) { body }` or an anonymous
// `function(params) { body }` expression form at the top level.
func (p *Parser) parseFunctionDecl() *ast.Function {
	start := p.cur().Span.Start
	p.consume(token.KW_FUNCTION, "expected 'function'")

	name := ""
	if p.check(token.IDENT) {
		name = p.advance().Lexeme
	}

	params := p.parseParamList()
	p.skipTypeAnnotationIfAny() // TS return type, parsed and discarded
	body := p.parseBlock()

	return &ast.Function{
		Base:   ast.NewBase(p.span(start)),
		Name:   name,
		Params: params,
		Body:   body,
	}
}

func (p *Parser) parseParamList() []ast.Param {
	p.consume(token.LPAREN, "expected '(' after function name")
	var params []ast.Param
	for !p.check(token.RPAREN) {
		pat := p.parseBindingPattern()
		var def ast.Expr
		if p.match(token.ASSIGN) {
			def = p.parseAssignExpr()
		}
		params = append(params, ast.Param{Pattern: pat, Default: def})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RPAREN, "expected ')' after parameters")
	return params
}

// skipTypeAnnotationIfAny discards a TS-style `: Type` annotation; type
// syntax is parsed and dropped (see SPEC_FULL.md §4.2 on the `ts`/`tsx`
// file types), never checked.
func (p *Parser) skipTypeAnnotationIfAny() {
	if !p.fileType.ts() {
		return
	}
	if !p.check(token.COLON) {
		return
	}
	p.advance()
	depth := 0
	for !p.atEnd() {
		switch p.cur().Kind {
		case token.LBRACE:
			if depth == 0 {
				// a `{` following a type ends the annotation (function body).
				return
			}
			depth++
		case token.LBRACKET, token.LPAREN:
			depth++
		case token.RBRACE, token.RBRACKET, token.RPAREN:
			if depth == 0 {
				return
			}
			depth--
		case token.COMMA, token.ASSIGN:
			if depth == 0 {
				return
			}
		}
		p.advance()
	}
}

// --- binding patterns ------------------------------------------------------

func (p *Parser) parseBindingPattern() ast.Pattern {
	start := p.cur().Span.Start
	switch {
	case p.check(token.LBRACKET):
		return p.parseArrayPattern(start)
	case p.check(token.LBRACE):
		return p.parseObjectPattern(start)
	default:
		name := p.consume(token.IDENT, "expected binding name").Lexeme
		p.skipTypeAnnotationIfAny()
		return &ast.IdentPattern{Base: ast.NewBase(p.span(start)), Name: name}
	}
}

func (p *Parser) parseArrayPattern(start token.Position) ast.Pattern {
	p.consume(token.LBRACKET, "expected '['")
	pat := &ast.ArrayPattern{}
	for !p.check(token.RBRACKET) {
		if p.match(token.COMMA) {
			pat.Elements = append(pat.Elements, nil)
			continue
		}
		if p.match(token.DOTDOTDOT) {
			pat.Rest = p.parseBindingPattern()
			break
		}
		pat.Elements = append(pat.Elements, p.parseBindingPatternWithDefault())
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RBRACKET, "expected ']' to close array pattern")
	pat.Base = ast.NewBase(p.span(start))
	return pat
}

// parseBindingPatternWithDefault wraps a default-valued sub-pattern. Default
// values are realized as a post-load IsNullish branch during lowering
// (spec.md §4.2); here they are recorded alongside the pattern so lowering
// can see them.
func (p *Parser) parseBindingPatternWithDefault() ast.Pattern {
	pat := p.parseBindingPattern()
	if p.match(token.ASSIGN) {
		def := p.parseAssignExpr()
		return &defaultedPattern{Pattern: pat, def: def}
	}
	return pat
}

// defaultedPattern is a parser-internal pattern node carrying a default
// value. Embedding the wrapped pattern makes it an ast.Pattern;
// internal/lower's bindPattern unwraps it through Inner.
type defaultedPattern struct {
	ast.Pattern
	def ast.Expr
}

func (d *defaultedPattern) Span() token.Span { return d.Pattern.Span() }

// Inner exposes the wrapped pattern and its default expression.
func (d *defaultedPattern) Inner() (ast.Pattern, ast.Expr) { return d.Pattern, d.def }

func (p *Parser) parseObjectPattern(start token.Position) ast.Pattern {
	p.consume(token.LBRACE, "expected '{'")
	pat := &ast.ObjectPattern{}
	for !p.check(token.RBRACE) {
		if p.match(token.DOTDOTDOT) {
			pat.Rest = p.parseBindingPattern()
			break
		}
		key := p.consume(token.IDENT, "expected property name").Lexeme
		var value ast.Pattern = &ast.IdentPattern{Name: key}
		if p.match(token.COLON) {
			value = p.parseBindingPattern()
		}
		var def ast.Expr
		if p.match(token.ASSIGN) {
			def = p.parseAssignExpr()
		}
		pat.Props = append(pat.Props, ast.ObjectPatternProp{Key: key, Value: value, Default: def})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RBRACE, "expected '}' to close object pattern")
	pat.Base = ast.NewBase(p.span(start))
	return pat
}

// --- statements --------------------------------------------------------

func (p *Parser) parseBlock() []ast.Stmt {
	p.consume(token.LBRACE, "expected '{'")
	var stmts []ast.Stmt
	for !p.check(token.RBRACE) && !p.atEnd() {
		stmts = append(stmts, p.parseStmt())
	}
	p.consume(token.RBRACE, "expected '}'")
	return stmts
}

func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	start := p.cur().Span.Start
	body := p.parseBlock()
	return &ast.BlockStmt{Base: ast.NewBase(p.span(start)), Body: body}
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur().Kind {
	case token.LBRACE:
		return p.parseBlockStmt()
	case token.KW_VAR, token.KW_LET, token.KW_CONST:
		s := p.parseVarDecl()
		p.skipSemi()
		return s
	case token.KW_IF:
		return p.parseIfStmt()
	case token.KW_WHILE:
		return p.parseWhileStmt("")
	case token.KW_DO:
		return p.parseDoWhileStmt("")
	case token.KW_FOR:
		return p.parseForStmt("")
	case token.KW_SWITCH:
		return p.parseSwitchStmt("")
	case token.KW_BREAK:
		return p.parseBreakStmt()
	case token.KW_CONTINUE:
		return p.parseContinueStmt()
	case token.KW_RETURN:
		return p.parseReturnStmt()
	case token.KW_THROW:
		return p.parseThrowStmt()
	case token.KW_TRY:
		return p.parseTryStmt()
	case token.IDENT:
		if p.peekAt(1).Kind == token.COLON {
			return p.parseLabeledStmt()
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	start := p.cur().Span.Start
	var kind ast.DeclKind
	switch p.advance().Kind {
	case token.KW_VAR:
		kind = ast.DeclVar
	case token.KW_LET:
		kind = ast.DeclLet
	case token.KW_CONST:
		kind = ast.DeclConst
	}

	var decls []ast.VarDeclarator
	for {
		target := p.parseBindingPattern()
		var init ast.Expr
		if p.match(token.ASSIGN) {
			init = p.parseAssignExpr()
		}
		decls = append(decls, ast.VarDeclarator{Target: target, Init: init})
		if !p.match(token.COMMA) {
			break
		}
	}
	return &ast.VarDecl{Base: ast.NewBase(p.span(start)), Kind: kind, Declarators: decls}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	start := p.cur().Span.Start
	e := p.parseExpr()
	p.skipSemi()
	return &ast.ExprStmt{Base: ast.NewBase(p.span(start)), X: e}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	p.consume(token.LPAREN, "expected '(' after 'if'")
	test := p.parseExpr()
	p.consume(token.RPAREN, "expected ')' after condition")
	then := p.parseStmt()
	var els ast.Stmt
	if p.match(token.KW_ELSE) {
		els = p.parseStmt()
	}
	return &ast.IfStmt{Base: ast.NewBase(p.span(start)), Test: test, Then: then, Else: els}
}

func (p *Parser) parseWhileStmt(label string) ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	p.consume(token.LPAREN, "expected '(' after 'while'")
	test := p.parseExpr()
	p.consume(token.RPAREN, "expected ')' after condition")
	body := p.parseStmt()
	return &ast.WhileStmt{Base: ast.NewBase(p.span(start)), Label: label, Test: test, Body: body}
}

func (p *Parser) parseDoWhileStmt(label string) ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	body := p.parseStmt()
	p.consume(token.KW_WHILE, "expected 'while' after do-block")
	p.consume(token.LPAREN, "expected '(' after 'while'")
	test := p.parseExpr()
	p.consume(token.RPAREN, "expected ')' after condition")
	p.skipSemi()
	return &ast.DoWhileStmt{Base: ast.NewBase(p.span(start)), Label: label, Body: body, Test: test}
}

func (p *Parser) parseForStmt(label string) ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	p.consume(token.LPAREN, "expected '(' after 'for'")

	// for-in / for-of: `for (let x of xs)` / `for (x in xs)`
	if target, isDecl, dk, ok := p.tryParseForInOfHead(); ok {
		if p.match(token.KW_OF) {
			right := p.parseAssignExpr()
			p.consume(token.RPAREN, "expected ')' after for-of head")
			body := p.parseStmt()
			return &ast.ForInOfStmt{Base: ast.NewBase(p.span(start)), Label: label, Of: true, DeclKind: dk, IsDecl: isDecl, Target: target, Right: right, Body: body}
		}
		if p.match(token.KW_IN) {
			right := p.parseAssignExpr()
			p.consume(token.RPAREN, "expected ')' after for-in head")
			body := p.parseStmt()
			return &ast.ForInOfStmt{Base: ast.NewBase(p.span(start)), Label: label, Of: false, DeclKind: dk, IsDecl: isDecl, Target: target, Right: right, Body: body}
		}
		p.fail("expected 'in' or 'of' in for-in/of head")
	}

	var init ast.Stmt
	if !p.check(token.SEMICOLON) {
		if p.check(token.KW_VAR) || p.check(token.KW_LET) || p.check(token.KW_CONST) {
			init = p.parseVarDecl()
		} else {
			init = &ast.ExprStmt{X: p.parseExpr()}
		}
	}
	p.consume(token.SEMICOLON, "expected ';' after for-init")

	var test ast.Expr
	if !p.check(token.SEMICOLON) {
		test = p.parseExpr()
	}
	p.consume(token.SEMICOLON, "expected ';' after for-test")

	var update ast.Expr
	if !p.check(token.RPAREN) {
		update = p.parseExpr()
	}
	p.consume(token.RPAREN, "expected ')' after for-clauses")

	body := p.parseStmt()
	return &ast.ForStmt{Base: ast.NewBase(p.span(start)), Label: label, Init: init, Test: test, Update: update, Body: body}
}

// tryParseForInOfHead speculatively parses a `[let|const|var] pattern` head
// and reports whether the next token is 'in' or 'of'; it rewinds on failure
// so ordinary C-style for-headers are unaffected.
func (p *Parser) tryParseForInOfHead() (target ast.Pattern, isDecl bool, dk ast.DeclKind, ok bool) {
	save := p.pos
	defer func() {
		if r := recover(); r != nil {
			p.pos = save
			ok = false
		}
	}()

	hasDecl := false
	if p.check(token.KW_VAR) || p.check(token.KW_LET) || p.check(token.KW_CONST) {
		hasDecl = true
		switch p.advance().Kind {
		case token.KW_VAR:
			dk = ast.DeclVar
		case token.KW_LET:
			dk = ast.DeclLet
		case token.KW_CONST:
			dk = ast.DeclConst
		}
	}
	pat := p.parseBindingPattern()
	if p.check(token.KW_IN) || p.check(token.KW_OF) {
		return pat, hasDecl, dk, true
	}
	p.pos = save
	return nil, false, 0, false
}

func (p *Parser) parseSwitchStmt(label string) ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	p.consume(token.LPAREN, "expected '(' after 'switch'")
	disc := p.parseExpr()
	p.consume(token.RPAREN, "expected ')' after discriminant")
	p.consume(token.LBRACE, "expected '{' to start switch body")

	var cases []ast.SwitchCase
	for !p.check(token.RBRACE) && !p.atEnd() {
		var test ast.Expr
		if p.match(token.KW_CASE) {
			test = p.parseExpr()
		} else {
			p.consume(token.KW_DEFAULT, "expected 'case' or 'default'")
		}
		p.consume(token.COLON, "expected ':' after case label")
		var body []ast.Stmt
		for !p.check(token.KW_CASE) && !p.check(token.KW_DEFAULT) && !p.check(token.RBRACE) && !p.atEnd() {
			body = append(body, p.parseStmt())
		}
		cases = append(cases, ast.SwitchCase{Test: test, Body: body})
	}
	p.consume(token.RBRACE, "expected '}' to close switch body")
	return &ast.SwitchStmt{Base: ast.NewBase(p.span(start)), Label: label, Discriminant: disc, Cases: cases}
}

func (p *Parser) parseBreakStmt() ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	label := ""
	if p.check(token.IDENT) {
		label = p.advance().Lexeme
	}
	p.skipSemi()
	return &ast.BreakStmt{Base: ast.NewBase(p.span(start)), Label: label}
}

func (p *Parser) parseContinueStmt() ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	label := ""
	if p.check(token.IDENT) {
		label = p.advance().Lexeme
	}
	p.skipSemi()
	return &ast.ContinueStmt{Base: ast.NewBase(p.span(start)), Label: label}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	var value ast.Expr
	if !p.check(token.SEMICOLON) && !p.check(token.RBRACE) {
		value = p.parseExpr()
	}
	p.skipSemi()
	return &ast.ReturnStmt{Base: ast.NewBase(p.span(start)), Value: value}
}

func (p *Parser) parseThrowStmt() ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	value := p.parseExpr()
	p.skipSemi()
	return &ast.ThrowStmt{Base: ast.NewBase(p.span(start)), Value: value}
}

func (p *Parser) parseTryStmt() ast.Stmt {
	start := p.cur().Span.Start
	p.advance()
	block := p.parseBlockStmt()

	stmt := &ast.TryStmt{Block: block}
	if p.match(token.KW_CATCH) {
		stmt.HasCatch = true
		if p.match(token.LPAREN) {
			stmt.CatchParam = p.parseBindingPattern()
			p.consume(token.RPAREN, "expected ')' after catch parameter")
		}
		stmt.CatchBlock = p.parseBlockStmt()
	}
	if p.match(token.KW_FINALLY) {
		stmt.FinallyBlock = p.parseBlockStmt()
	}
	stmt.Base = ast.NewBase(p.span(start))
	return stmt
}

func (p *Parser) parseLabeledStmt() ast.Stmt {
	start := p.cur().Span.Start
	label := p.advance().Lexeme
	p.consume(token.COLON, "expected ':' after label")
	switch p.cur().Kind {
	case token.KW_WHILE:
		return p.parseWhileStmt(label)
	case token.KW_DO:
		return p.parseDoWhileStmt(label)
	case token.KW_FOR:
		return p.parseForStmt(label)
	case token.KW_SWITCH:
		return p.parseSwitchStmt(label)
	default:
		body := p.parseStmt()
		return &ast.LabeledStmt{Base: ast.NewBase(p.span(start)), Label: label, Body: body}
	}
}
