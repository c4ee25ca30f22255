package parser

import (
	"strconv"

	"reactivec/internal/ast"
	"reactivec/internal/token"
)

// binaryPrecedence is the canonical JS binary-operator precedence table,
// generalized from the teacher's single-digit table to cover every
// arithmetic, comparison, bitwise, and relational operator spec.md §4.2
// names.
var binaryPrecedence = map[token.Kind]int{
	token.QUESTION_QUESTION: 1,
	token.OR_OR:             2,
	token.AND_AND:           3,
	token.PIPE:              4,
	token.CARET:             5,
	token.AMP:               6,
	token.EQ:                7,
	token.NEQ:               7,
	token.EQ_STRICT:         7,
	token.NEQ_STRICT:        7,
	token.LT:                8,
	token.GT:                8,
	token.LE:                8,
	token.GE:                8,
	token.KW_IN:             8,
	token.KW_INSTANCEOF:     8,
	token.LSHIFT:            9,
	token.RSHIFT:            9,
	token.URSHIFT:           9,
	token.PLUS:              10,
	token.MINUS:             10,
	token.STAR:              11,
	token.SLASH:             11,
	token.PERCENT:           11,
}

func opLexeme(k token.Kind) string {
	switch k {
	case token.PLUS:
		return "+"
	case token.MINUS:
		return "-"
	case token.STAR:
		return "*"
	case token.SLASH:
		return "/"
	case token.PERCENT:
		return "%"
	case token.EQ:
		return "=="
	case token.NEQ:
		return "!="
	case token.EQ_STRICT:
		return "==="
	case token.NEQ_STRICT:
		return "!=="
	case token.LT:
		return "<"
	case token.GT:
		return ">"
	case token.LE:
		return "<="
	case token.GE:
		return ">="
	case token.AMP:
		return "&"
	case token.PIPE:
		return "|"
	case token.CARET:
		return "^"
	case token.LSHIFT:
		return "<<"
	case token.RSHIFT:
		return ">>"
	case token.URSHIFT:
		return ">>>"
	case token.KW_IN:
		return "in"
	case token.KW_INSTANCEOF:
		return "instanceof"
	case token.AND_AND:
		return "&&"
	case token.OR_OR:
		return "||"
	case token.QUESTION_QUESTION:
		return "??"
	default:
		return ""
	}
}

func isLogicalOp(op string) bool {
	return op == "&&" || op == "||" || op == "??"
}

var assignOps = map[token.Kind]string{
	token.ASSIGN:         "=",
	token.PLUS_ASSIGN:    "+=",
	token.MINUS_ASSIGN:   "-=",
	token.STAR_ASSIGN:    "*=",
	token.SLASH_ASSIGN:   "/=",
	token.PERCENT_ASSIGN: "%=",
}

// parseExpr parses a full (possibly comma-separated sequence) expression.
func (p *Parser) parseExpr() ast.Expr {
	start := p.cur().Span.Start
	first := p.parseAssignExpr()
	if !p.check(token.COMMA) {
		return first
	}
	exprs := []ast.Expr{first}
	for p.match(token.COMMA) {
		exprs = append(exprs, p.parseAssignExpr())
	}
	return &ast.SequenceExpr{Base: ast.NewBase(p.span(start)), Exprs: exprs}
}

// parseAssignExpr parses assignment and conditional (ternary) expressions,
// the lowest-precedence non-sequence forms.
func (p *Parser) parseAssignExpr() ast.Expr {
	start := p.cur().Span.Start
	left := p.parseConditionalExpr()

	if op, ok := assignOps[p.cur().Kind]; ok {
		p.advance()
		value := p.parseAssignExpr()
		return &ast.AssignExpr{Base: ast.NewBase(p.span(start)), Op: op, Target: left, Value: value}
	}
	return left
}

func (p *Parser) parseConditionalExpr() ast.Expr {
	start := p.cur().Span.Start
	test := p.parseBinaryExpr(1)
	if !p.match(token.QUESTION) {
		return test
	}
	then := p.parseAssignExpr()
	p.consume(token.COLON, "expected ':' in conditional expression")
	els := p.parseAssignExpr()
	return &ast.ConditionalExpr{Base: ast.NewBase(p.span(start)), Test: test, Then: then, Else: els}
}

// parseBinaryExpr implements precedence climbing over binaryPrecedence,
// generalizing the teacher's parsePrattExpr.
func (p *Parser) parseBinaryExpr(minPrec int) ast.Expr {
	start := p.cur().Span.Start
	left := p.parseUnaryExpr()

	for {
		kind := p.cur().Kind
		prec, ok := binaryPrecedence[kind]
		if !ok || prec < minPrec {
			break
		}
		op := opLexeme(kind)
		p.advance()
		right := p.parseBinaryExpr(prec + 1)

		if isLogicalOp(op) {
			left = &ast.LogicalExpr{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
		} else {
			left = &ast.BinaryExpr{Base: ast.NewBase(p.span(start)), Op: op, Left: left, Right: right}
		}
	}
	return left
}

var unaryOps = map[token.Kind]string{
	token.BANG:      "!",
	token.MINUS:     "-",
	token.PLUS:      "+",
	token.TILDE:     "~",
	token.KW_TYPEOF: "typeof",
	token.KW_VOID:   "void",
	token.KW_DELETE: "delete",
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	start := p.cur().Span.Start
	if op, ok := unaryOps[p.cur().Kind]; ok {
		p.advance()
		operand := p.parseUnaryExpr()
		return &ast.UnaryExpr{Base: ast.NewBase(p.span(start)), Op: op, Operand: operand}
	}
	if p.check(token.PLUS_PLUS) || p.check(token.MINUS_MINUS) {
		op := "++"
		if p.cur().Kind == token.MINUS_MINUS {
			op = "--"
		}
		p.advance()
		operand := p.parseUnaryExpr()
		return &ast.UpdateExpr{Base: ast.NewBase(p.span(start)), Op: op, Prefix: true, Operand: operand}
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() ast.Expr {
	start := p.cur().Span.Start
	expr := p.parseCallMemberExpr()
	if p.check(token.PLUS_PLUS) || p.check(token.MINUS_MINUS) {
		op := "++"
		if p.cur().Kind == token.MINUS_MINUS {
			op = "--"
		}
		p.advance()
		return &ast.UpdateExpr{Base: ast.NewBase(p.span(start)), Op: op, Prefix: false, Operand: expr}
	}
	return expr
}

// parseCallMemberExpr handles member access, computed access, optional
// chaining, and calls, left to right, on top of a primary expression.
func (p *Parser) parseCallMemberExpr() ast.Expr {
	start := p.cur().Span.Start
	var expr ast.Expr
	if p.match(token.KW_NEW) {
		callee := p.parseCallMemberExprNoCall()
		var args []ast.Expr
		if p.match(token.LPAREN) {
			args = p.newArgList()
		}
		expr = &ast.NewExpr{Base: ast.NewBase(p.span(start)), Callee: callee, Args: args}
	} else {
		expr = p.parsePrimaryExpr()
	}

	for {
		switch {
		case p.check(token.DOT):
			p.advance()
			name := p.consume(token.IDENT, "expected property name after '.'").Lexeme
			expr = &ast.MemberExpr{Base: ast.NewBase(p.span(start)), Object: expr, Property: name}
		case p.check(token.QUESTION_DOT):
			p.advance()
			if p.check(token.LPAREN) {
				p.advance()
				args, spreads := p.parseArgList()
				expr = &ast.CallExpr{Base: ast.NewBase(p.span(start)), Callee: expr, Args: args, Spreads: spreads, Optional: true}
				continue
			}
			if p.check(token.LBRACKET) {
				p.advance()
				idx := p.parseExpr()
				p.consume(token.RBRACKET, "expected ']'")
				expr = &ast.MemberExpr{Base: ast.NewBase(p.span(start)), Object: expr, Index: idx, Computed: true, Optional: true}
				continue
			}
			name := p.consume(token.IDENT, "expected property name after '?.'").Lexeme
			expr = &ast.MemberExpr{Base: ast.NewBase(p.span(start)), Object: expr, Property: name, Optional: true}
		case p.check(token.LBRACKET):
			p.advance()
			idx := p.parseExpr()
			p.consume(token.RBRACKET, "expected ']' after computed member")
			expr = &ast.MemberExpr{Base: ast.NewBase(p.span(start)), Object: expr, Index: idx, Computed: true}
		case p.check(token.LPAREN):
			p.advance()
			args, spreads := p.parseArgList()
			expr = &ast.CallExpr{Base: ast.NewBase(p.span(start)), Callee: expr, Args: args, Spreads: spreads}
		case p.check(token.BACKTICK):
			tmpl := p.parseTemplateLiteral()
			expr = &ast.TaggedTemplateExpr{Base: ast.NewBase(p.span(start)), Tag: expr, Template: tmpl}
		default:
			return expr
		}
	}
}

// parseCallMemberExprNoCall parses the callee of a `new` expression, which
// binds tighter than a trailing call (`new a.b.C()` vs `new a.b.C(x)()`).
func (p *Parser) parseCallMemberExprNoCall() ast.Expr {
	start := p.cur().Span.Start
	expr := p.parsePrimaryExpr()
	for {
		switch {
		case p.check(token.DOT):
			p.advance()
			name := p.consume(token.IDENT, "expected property name after '.'").Lexeme
			expr = &ast.MemberExpr{Base: ast.NewBase(p.span(start)), Object: expr, Property: name}
		case p.check(token.LBRACKET):
			p.advance()
			idx := p.parseExpr()
			p.consume(token.RBRACKET, "expected ']'")
			expr = &ast.MemberExpr{Base: ast.NewBase(p.span(start)), Object: expr, Index: idx, Computed: true}
		default:
			return expr
		}
	}
}

// parseArgList parses a call argument list; spreads is parallel to the
// returned args per ast.CallExpr's contract.
func (p *Parser) parseArgList() (args []ast.Expr, spreads []bool) {
	for !p.check(token.RPAREN) {
		spread := p.match(token.DOTDOTDOT)
		args = append(args, p.parseAssignExpr())
		spreads = append(spreads, spread)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RPAREN, "expected ')' after arguments")
	return args, spreads
}

// newArgList parses a `new` callee's argument list, wrapping spreads in
// SpreadExpr since ast.NewExpr has no parallel spread-flags field.
func (p *Parser) newArgList() []ast.Expr {
	args, spreads := p.parseArgList()
	for i, spread := range spreads {
		if spread {
			args[i] = &ast.SpreadExpr{Arg: args[i]}
		}
	}
	return args
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	start := p.cur().Span.Start
	switch p.cur().Kind {
	case token.NUMBER:
		lit := p.advance().Lexeme
		return p.numberLiteral(start, lit)
	case token.STRING:
		t := p.advance()
		return &ast.Literal{Base: ast.NewBase(p.span(start)), Kind: ast.ConstString, Cooked: t.Lexeme, Raw: t.Lexeme}
	case token.BACKTICK:
		return p.parseTemplateLiteral()
	case token.KW_TRUE:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(p.span(start)), Kind: ast.ConstBool, Bool: true}
	case token.KW_FALSE:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(p.span(start)), Kind: ast.ConstBool, Bool: false}
	case token.KW_NULL:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(p.span(start)), Kind: ast.ConstNull}
	case token.KW_UNDEFINED:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(p.span(start)), Kind: ast.ConstUndefined}
	case token.IDENT:
		if p.peekAt(1).Kind == token.ARROW {
			return p.parseArrowSingleParam()
		}
		name := p.advance().Lexeme
		return &ast.Ident{Base: ast.NewBase(p.span(start)), Name: name}
	case token.LPAREN:
		if p.looksLikeArrowParams() {
			return p.parseArrowExpr()
		}
		p.advance()
		e := p.parseExpr()
		p.consume(token.RPAREN, "expected ')'")
		return e
	case token.LBRACKET:
		return p.parseArrayExpr()
	case token.LBRACE:
		return p.parseObjectExpr()
	case token.KW_FUNCTION:
		fn := p.parseFunctionDecl()
		return &ast.FunctionExpr{Base: ast.NewBase(p.span(start)), Fn: fn}
	case token.LT:
		if p.fileType.jsx() {
			return p.parseJSXExpr()
		}
		p.fail("unexpected '<'")
	}
	p.fail("expected expression")
	return nil
}

func (p *Parser) numberLiteral(start token.Position, lit string) ast.Expr {
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return &ast.Literal{Base: ast.NewBase(p.span(start)), Kind: ast.ConstInt, Int: i, Raw: lit}
	}
	f, _ := strconv.ParseFloat(lit, 64)
	return &ast.Literal{Base: ast.NewBase(p.span(start)), Kind: ast.ConstFloat, Float: f, Raw: lit}
}

// parseTemplateLiteral consumes BACKTICK (TEMPLATE_STRING (DOLLAR_LBRACE
// expr TEMPLATE_RBRACE TEMPLATE_STRING)* BACKTICK) as emitted by
// internal/lexer.
func (p *Parser) parseTemplateLiteral() *ast.TemplateExpr {
	start := p.cur().Span.Start
	p.consume(token.BACKTICK, "expected '`'")
	tmpl := &ast.TemplateExpr{}
	for {
		q := p.consume(token.TEMPLATE_STRING, "expected template text")
		tmpl.Quasis = append(tmpl.Quasis, q.Lexeme)
		if p.match(token.BACKTICK) {
			break
		}
		p.consume(token.DOLLAR_LBRACE, "expected '${'")
		tmpl.Exprs = append(tmpl.Exprs, p.parseExpr())
		p.consume(token.TEMPLATE_RBRACE, "expected '}' to close interpolation")
	}
	tmpl.Base = ast.NewBase(p.span(start))
	return tmpl
}

func (p *Parser) parseArrayExpr() ast.Expr {
	start := p.cur().Span.Start
	p.consume(token.LBRACKET, "expected '['")
	arr := &ast.ArrayExpr{}
	for !p.check(token.RBRACKET) {
		if p.check(token.COMMA) {
			arr.Elements = append(arr.Elements, ast.ArrayElem{})
			p.advance()
			continue
		}
		if p.match(token.DOTDOTDOT) {
			arr.Elements = append(arr.Elements, ast.ArrayElem{Value: p.parseAssignExpr(), Spread: true})
		} else {
			arr.Elements = append(arr.Elements, ast.ArrayElem{Value: p.parseAssignExpr()})
		}
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RBRACKET, "expected ']'")
	arr.Base = ast.NewBase(p.span(start))
	return arr
}

func (p *Parser) parseObjectExpr() ast.Expr {
	start := p.cur().Span.Start
	p.consume(token.LBRACE, "expected '{'")
	obj := &ast.ObjectExpr{}
	for !p.check(token.RBRACE) {
		if p.match(token.DOTDOTDOT) {
			obj.Props = append(obj.Props, ast.ObjectProp{Value: p.parseAssignExpr(), Spread: true})
			if !p.match(token.COMMA) {
				break
			}
			continue
		}
		var key string
		var computed ast.Expr
		if p.match(token.LBRACKET) {
			computed = p.parseAssignExpr()
			p.consume(token.RBRACKET, "expected ']' after computed key")
		} else if p.check(token.STRING) {
			key = p.advance().Lexeme
		} else {
			key = p.consume(token.IDENT, "expected property key").Lexeme
		}

		var value ast.Expr
		if p.match(token.COLON) {
			value = p.parseAssignExpr()
		} else if computed == nil {
			value = &ast.Ident{Name: key} // shorthand `{x}`
		}
		obj.Props = append(obj.Props, ast.ObjectProp{Key: key, Computed: computed, Value: value})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RBRACE, "expected '}'")
	obj.Base = ast.NewBase(p.span(start))
	return obj
}

// --- arrow functions -----------------------------------------------------

func (p *Parser) parseArrowSingleParam() ast.Expr {
	start := p.cur().Span.Start
	name := p.advance().Lexeme
	p.consume(token.ARROW, "expected '=>'")
	body, bodyExpr := p.parseArrowBody()
	fn := &ast.Function{
		Base:   ast.NewBase(p.span(start)),
		Params: []ast.Param{{Pattern: &ast.IdentPattern{Name: name}}},
		Body:   body,
		Arrow:  true,
	}
	_ = bodyExpr
	return &ast.FunctionExpr{Base: ast.NewBase(p.span(start)), Fn: fn}
}

// looksLikeArrowParams scans ahead from '(' to see whether it is followed,
// after a balanced paren group, by '=>'.
func (p *Parser) looksLikeArrowParams() bool {
	depth := 0
	i := p.pos
	for {
		t := p.peekAt(i - p.pos)
		switch t.Kind {
		case token.EOF:
			return false
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return p.peekAt(i-p.pos+1).Kind == token.ARROW
			}
		}
		i++
	}
}

func (p *Parser) parseArrowExpr() ast.Expr {
	start := p.cur().Span.Start
	params := p.parseParamList()
	p.skipTypeAnnotationIfAny()
	p.consume(token.ARROW, "expected '=>'")
	body, _ := p.parseArrowBody()
	fn := &ast.Function{Base: ast.NewBase(p.span(start)), Params: params, Body: body, Arrow: true}
	return &ast.FunctionExpr{Base: ast.NewBase(p.span(start)), Fn: fn}
}

// parseArrowBody handles both block bodies `=> { ... }` and concise
// expression bodies `=> expr`, the latter desugared to a single return
// statement so lowering only ever sees block-bodied functions.
func (p *Parser) parseArrowBody() ([]ast.Stmt, ast.Expr) {
	if p.check(token.LBRACE) {
		return p.parseBlock(), nil
	}
	e := p.parseAssignExpr()
	return []ast.Stmt{&ast.ReturnStmt{Value: e}}, e
}

// --- minimal JSX (fileType jsx/tsx) ---------------------------------------

func (p *Parser) parseJSXExpr() ast.Expr {
	start := p.cur().Span.Start
	p.consume(token.LT, "expected '<'")
	tag := p.consume(token.IDENT, "expected JSX tag name").Lexeme

	jsx := &ast.JSXExpr{Tag: tag}
	for p.check(token.IDENT) {
		name := p.advance().Lexeme
		var value ast.Expr
		if p.match(token.ASSIGN) {
			if p.check(token.STRING) {
				t := p.advance()
				value = &ast.Literal{Kind: ast.ConstString, Cooked: t.Lexeme, Raw: t.Lexeme}
			} else {
				p.consume(token.LBRACE, "expected '{' in JSX attribute value")
				value = p.parseExpr()
				p.consume(token.RBRACE, "expected '}' to close JSX attribute value")
			}
		} else {
			value = &ast.Literal{Kind: ast.ConstBool, Bool: true}
		}
		jsx.Props = append(jsx.Props, ast.ObjectProp{Key: name, Value: value})
	}

	if p.match(token.SLASH) {
		p.consume(token.GT, "expected '>' to close self-closing JSX element")
		jsx.Base = ast.NewBase(p.span(start))
		return jsx
	}
	p.consume(token.GT, "expected '>' after JSX opening tag")

	for !(p.check(token.LT) && p.peekAt(1).Kind == token.SLASH) {
		if p.check(token.LBRACE) {
			p.advance()
			jsx.Children = append(jsx.Children, p.parseExpr())
			p.consume(token.RBRACE, "expected '}' to close JSX expression child")
			continue
		}
		if p.check(token.LT) {
			jsx.Children = append(jsx.Children, p.parseJSXExpr())
			continue
		}
		p.fail("expected JSX child or closing tag")
	}
	p.advance() // '<'
	p.advance() // '/'
	p.consume(token.IDENT, "expected closing tag name")
	p.consume(token.GT, "expected '>' to close JSX element")
	jsx.Base = ast.NewBase(p.span(start))
	return jsx
}
