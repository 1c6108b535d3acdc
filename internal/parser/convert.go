package parser

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"dbd/internal/ast"

	sitter "github.com/smacker/go-tree-sitter"
)

// converter maps a tree-sitter JavaScript tree onto ast nodes. Anything
// outside the modelled subset becomes an Unsupported node carrying the
// ESTree name of the construct, so lowering can skip it with a diagnostic.
type converter struct {
	source []byte
}

// estreeKinds names the tree-sitter node types that have no ast node.
var estreeKinds = map[string]string{
	"class_declaration":        "ClassDeclaration",
	"class":                    "ClassExpression",
	"import_statement":         "ImportDeclaration",
	"export_statement":         "ExportNamedDeclaration",
	"debugger_statement":       "DebuggerStatement",
	"with_statement":           "WithStatement",
	"spread_element":           "SpreadElement",
	"yield_expression":         "YieldExpression",
	"await_expression":         "AwaitExpression",
	"object_pattern":           "ObjectPattern",
	"array_pattern":            "ArrayPattern",
	"assignment_pattern":       "AssignmentPattern",
	"rest_pattern":             "RestElement",
	"meta_property":            "MetaProperty",
	"import":                   "ImportExpression",
	"super":                    "Super",
	"jsx_element":              "JSXElement",
	"jsx_self_closing_element": "JSXElement",
}

func estreeKind(nodeType string) string {
	if kind, ok := estreeKinds[nodeType]; ok {
		return kind
	}
	return nodeType
}

func start(n *sitter.Node) ast.Position { return position(n.StartPoint(), n.StartByte()) }
func end(n *sitter.Node) ast.Position   { return position(n.EndPoint(), n.EndByte()) }

// namedChildren returns the named children of n without comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if kids := namedChildren(n); len(kids) > 0 {
		return kids[0]
	}
	return nil
}

// token returns the first anonymous child of n with one of the given types.
func token(n *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		for _, t := range types {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.source)
}

func (c *converter) program(root *sitter.Node) *ast.Program {
	return &ast.Program{
		Pos:    start(root),
		EndPos: end(root),
		Body:   c.statements(namedChildren(root)),
	}
}

func (c *converter) statements(nodes []*sitter.Node) []ast.Statement {
	out := make([]ast.Statement, 0, len(nodes))
	for _, n := range nodes {
		switch n.Type() {
		case "ERROR", "hash_bang_line":
			continue
		}
		out = append(out, c.statement(n))
	}
	return out
}

// body converts a statement that the enclosing construct requires.
func (c *converter) body(n *sitter.Node) ast.Statement {
	if n == nil {
		return &ast.EmptyStatement{}
	}
	return c.statement(n)
}

func (c *converter) statement(n *sitter.Node) ast.Statement {
	if n == nil {
		return nil
	}
	pos, endPos := start(n), end(n)
	switch n.Type() {
	case "statement_block":
		return c.block(n)
	case "empty_statement", "ERROR":
		return &ast.EmptyStatement{Pos: pos, EndPos: endPos}
	case "expression_statement":
		return &ast.ExpressionStatement{Pos: pos, EndPos: endPos, Expression: c.expression(firstNamed(n))}
	case "variable_declaration":
		return c.declaration(n, ast.VAR)
	case "lexical_declaration":
		return c.lexical(n)
	case "function_declaration", "generator_function_declaration":
		return &ast.FunctionDeclaration{Pos: pos, EndPos: endPos, Function: c.function(n, false)}
	case "return_statement":
		return &ast.ReturnStatement{Pos: pos, EndPos: endPos, Argument: c.optionalExpression(firstNamed(n))}
	case "if_statement":
		s := &ast.IfStatement{
			Pos: pos, EndPos: endPos,
			Test:       c.expression(n.ChildByFieldName("condition")),
			Consequent: c.body(n.ChildByFieldName("consequence")),
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == "else_clause" {
				alt = firstNamed(alt)
			}
			if alt != nil {
				s.Alternate = c.statement(alt)
			}
		}
		return s
	case "while_statement":
		return &ast.WhileStatement{
			Pos: pos, EndPos: endPos,
			Test: c.expression(n.ChildByFieldName("condition")),
			Body: c.body(n.ChildByFieldName("body")),
		}
	case "do_statement":
		return &ast.DoWhileStatement{
			Pos: pos, EndPos: endPos,
			Body: c.body(n.ChildByFieldName("body")),
			Test: c.expression(n.ChildByFieldName("condition")),
		}
	case "for_statement":
		return c.forStatement(n)
	case "for_in_statement":
		return c.forIn(n)
	case "break_statement":
		return &ast.BreakStatement{Pos: pos, EndPos: endPos, Label: c.identifier(n.ChildByFieldName("label"))}
	case "continue_statement":
		return &ast.ContinueStatement{Pos: pos, EndPos: endPos, Label: c.identifier(n.ChildByFieldName("label"))}
	case "labeled_statement":
		return &ast.LabeledStatement{
			Pos: pos, EndPos: endPos,
			Label: c.identifier(n.ChildByFieldName("label")),
			Body:  c.body(n.ChildByFieldName("body")),
		}
	case "switch_statement":
		return c.switchStatement(n)
	case "throw_statement":
		return &ast.ThrowStatement{Pos: pos, EndPos: endPos, Argument: c.expression(firstNamed(n))}
	case "try_statement":
		return c.tryStatement(n)
	}
	return &ast.UnsupportedStatement{Pos: pos, EndPos: endPos, Kind: estreeKind(n.Type())}
}

func (c *converter) block(n *sitter.Node) *ast.BlockStatement {
	if n == nil {
		return &ast.BlockStatement{}
	}
	return &ast.BlockStatement{Pos: start(n), EndPos: end(n), Body: c.statements(namedChildren(n))}
}

func (c *converter) lexical(n *sitter.Node) *ast.VariableDeclaration {
	kind := ast.LET
	if token(n, "const") != nil {
		kind = ast.CONST
	}
	return c.declaration(n, kind)
}

func (c *converter) declaration(n *sitter.Node, kind ast.VariableKind) *ast.VariableDeclaration {
	decl := &ast.VariableDeclaration{Pos: start(n), EndPos: end(n), Kind: kind}
	for _, v := range namedChildren(n) {
		if v.Type() != "variable_declarator" {
			continue
		}
		decl.Declarations = append(decl.Declarations, &ast.VariableDeclarator{
			Pos: start(v), EndPos: end(v),
			ID:   c.expression(v.ChildByFieldName("name")),
			Init: c.optionalExpression(v.ChildByFieldName("value")),
		})
	}
	return decl
}

func (c *converter) forStatement(n *sitter.Node) ast.Statement {
	s := &ast.ForStatement{
		Pos: start(n), EndPos: end(n),
		Test:   c.clauseExpression(n.ChildByFieldName("condition")),
		Update: c.clauseExpression(n.ChildByFieldName("increment")),
		Body:   c.body(n.ChildByFieldName("body")),
	}
	if init := n.ChildByFieldName("initializer"); init != nil {
		switch init.Type() {
		case "variable_declaration":
			s.Init = c.declaration(init, ast.VAR)
		case "lexical_declaration":
			s.Init = c.lexical(init)
		default:
			if e := c.clauseExpression(init); e != nil {
				s.Init = e
			}
		}
	}
	return s
}

// clauseExpression unwraps the statement forms grammar versions use for the
// clauses of a for head. An empty clause yields nil.
func (c *converter) clauseExpression(n *sitter.Node) ast.Expression {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "empty_statement", ";":
		return nil
	case "expression_statement":
		return c.optionalExpression(firstNamed(n))
	}
	return c.expression(n)
}

func (c *converter) forIn(n *sitter.Node) ast.Statement {
	s := &ast.ForInStatement{
		Pos: start(n), EndPos: end(n),
		Right: c.expression(n.ChildByFieldName("right")),
		Body:  c.body(n.ChildByFieldName("body")),
		Of:    token(n, "of") != nil,
	}
	left := n.ChildByFieldName("left")
	kind := token(n, "var", "let", "const")
	if kind == nil {
		s.Left = c.expression(left)
		return s
	}
	decl := &ast.VariableDeclaration{Pos: start(kind), EndPos: end(kind), Kind: ast.VariableKind(kind.Type())}
	if left != nil {
		decl.EndPos = end(left)
		decl.Declarations = []*ast.VariableDeclarator{{
			Pos: start(left), EndPos: end(left),
			ID: c.expression(left),
		}}
	}
	s.Left = decl
	return s
}

func (c *converter) switchStatement(n *sitter.Node) ast.Statement {
	s := &ast.SwitchStatement{
		Pos: start(n), EndPos: end(n),
		Discriminant: c.expression(n.ChildByFieldName("value")),
	}
	for _, clause := range namedChildren(n.ChildByFieldName("body")) {
		sc := &ast.SwitchCase{Pos: start(clause), EndPos: end(clause)}
		body := namedChildren(clause)
		switch clause.Type() {
		case "switch_case":
			value := clause.ChildByFieldName("value")
			sc.Test = c.expression(value)
			if value != nil {
				var rest []*sitter.Node
				for _, stmt := range body {
					if stmt.StartByte() >= value.EndByte() {
						rest = append(rest, stmt)
					}
				}
				body = rest
			}
		case "switch_default":
		default:
			continue
		}
		sc.Consequent = c.statements(body)
		s.Cases = append(s.Cases, sc)
	}
	return s
}

func (c *converter) tryStatement(n *sitter.Node) ast.Statement {
	t := &ast.TryStatement{Pos: start(n), EndPos: end(n), Block: c.block(n.ChildByFieldName("body"))}
	if h := n.ChildByFieldName("handler"); h != nil {
		clause := &ast.CatchClause{Pos: start(h), EndPos: end(h), Body: c.block(h.ChildByFieldName("body"))}
		if p := h.ChildByFieldName("parameter"); p != nil {
			clause.Param = c.expression(p)
		}
		t.Handler = clause
	}
	if f := n.ChildByFieldName("finalizer"); f != nil {
		t.Finalizer = c.block(f.ChildByFieldName("body"))
	}
	return t
}

func (c *converter) function(n *sitter.Node, arrow bool) *ast.Function {
	f := &ast.Function{
		Pos: start(n), EndPos: end(n),
		ID:        c.identifier(n.ChildByFieldName("name")),
		Arrow:     arrow,
		Async:     token(n, "async") != nil,
		Generator: token(n, "*") != nil,
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range namedChildren(params) {
			f.Params = append(f.Params, c.expression(p))
		}
	} else if param := n.ChildByFieldName("parameter"); param != nil {
		f.Params = append(f.Params, c.expression(param))
	}
	body := n.ChildByFieldName("body")
	switch {
	case body != nil && body.Type() == "statement_block":
		f.Body = c.block(body)
	case body != nil && arrow:
		f.ExprBody = c.expression(body)
	default:
		f.Body = &ast.BlockStatement{Pos: f.EndPos, EndPos: f.EndPos}
	}
	return f
}

func (c *converter) identifier(n *sitter.Node) *ast.Identifier {
	if n == nil {
		return nil
	}
	return &ast.Identifier{Pos: start(n), EndPos: end(n), Name: c.text(n)}
}

func (c *converter) optionalExpression(n *sitter.Node) ast.Expression {
	if n == nil {
		return nil
	}
	return c.expression(n)
}

func (c *converter) expression(n *sitter.Node) ast.Expression {
	if n == nil {
		return &ast.UnsupportedExpression{Kind: "MissingExpression"}
	}
	pos, endPos := start(n), end(n)
	if n.IsMissing() {
		return &ast.UnsupportedExpression{Pos: pos, EndPos: endPos, Kind: "MissingExpression"}
	}
	switch n.Type() {
	case "identifier", "property_identifier", "shorthand_property_identifier",
		"shorthand_property_identifier_pattern", "private_property_identifier", "undefined":
		return c.identifier(n)
	case "number":
		return c.number(n)
	case "string":
		raw := c.text(n)
		return &ast.Literal{Pos: pos, EndPos: endPos, Kind: ast.STRING_LITERAL, Value: unquote(raw), Raw: raw}
	case "true", "false":
		return &ast.Literal{Pos: pos, EndPos: endPos, Kind: ast.BOOLEAN_LITERAL, Value: n.Type(), Raw: n.Type()}
	case "null":
		return &ast.Literal{Pos: pos, EndPos: endPos, Kind: ast.NULL_LITERAL, Value: "null", Raw: "null"}
	case "regex":
		raw := c.text(n)
		return &ast.Literal{Pos: pos, EndPos: endPos, Kind: ast.REGEXP_LITERAL, Value: raw, Raw: raw}
	case "template_string":
		return c.template(n)
	case "this":
		return &ast.ThisExpression{Pos: pos, EndPos: endPos}
	case "array":
		return c.array(n)
	case "object":
		return c.object(n)
	case "function", "function_expression", "generator_function":
		return &ast.FunctionExpression{Pos: pos, EndPos: endPos, Function: c.function(n, false)}
	case "arrow_function":
		return &ast.FunctionExpression{Pos: pos, EndPos: endPos, Function: c.function(n, true)}
	case "parenthesized_expression":
		return c.expression(firstNamed(n))
	case "unary_expression":
		return &ast.UnaryExpression{
			Pos: pos, EndPos: endPos,
			Operator: c.operator(n),
			Argument: c.expression(n.ChildByFieldName("argument")),
		}
	case "update_expression":
		arg := n.ChildByFieldName("argument")
		op := n.ChildByFieldName("operator")
		if op == nil {
			op = token(n, "++", "--")
		}
		u := &ast.UpdateExpression{Pos: pos, EndPos: endPos, Argument: c.expression(arg)}
		if op != nil {
			u.Operator = op.Type()
			u.Prefix = arg == nil || op.StartByte() < arg.StartByte()
		}
		return u
	case "binary_expression":
		op := c.operator(n)
		left := c.expression(n.ChildByFieldName("left"))
		right := c.expression(n.ChildByFieldName("right"))
		switch op {
		case "&&", "||", "??":
			return &ast.LogicalExpression{Pos: pos, EndPos: endPos, Operator: op, Left: left, Right: right}
		}
		return &ast.BinaryExpression{Pos: pos, EndPos: endPos, Operator: op, Left: left, Right: right}
	case "assignment_expression":
		return &ast.AssignmentExpression{
			Pos: pos, EndPos: endPos,
			Operator: "=",
			Left:     c.expression(n.ChildByFieldName("left")),
			Right:    c.expression(n.ChildByFieldName("right")),
		}
	case "augmented_assignment_expression":
		return &ast.AssignmentExpression{
			Pos: pos, EndPos: endPos,
			Operator: c.operator(n),
			Left:     c.expression(n.ChildByFieldName("left")),
			Right:    c.expression(n.ChildByFieldName("right")),
		}
	case "ternary_expression":
		return &ast.ConditionalExpression{
			Pos: pos, EndPos: endPos,
			Test:       c.expression(n.ChildByFieldName("condition")),
			Consequent: c.expression(n.ChildByFieldName("consequence")),
			Alternate:  c.expression(n.ChildByFieldName("alternative")),
		}
	case "call_expression":
		args := n.ChildByFieldName("arguments")
		if args != nil && args.Type() == "template_string" {
			return &ast.UnsupportedExpression{Pos: pos, EndPos: endPos, Kind: "TaggedTemplateExpression"}
		}
		return &ast.CallExpression{
			Pos: pos, EndPos: endPos,
			Callee:    c.expression(n.ChildByFieldName("function")),
			Arguments: c.arguments(args),
		}
	case "new_expression":
		return &ast.NewExpression{
			Pos: pos, EndPos: endPos,
			Callee:    c.expression(n.ChildByFieldName("constructor")),
			Arguments: c.arguments(n.ChildByFieldName("arguments")),
		}
	case "member_expression":
		return &ast.MemberExpression{
			Pos: pos, EndPos: endPos,
			Object:   c.expression(n.ChildByFieldName("object")),
			Property: c.expression(n.ChildByFieldName("property")),
		}
	case "subscript_expression":
		return &ast.MemberExpression{
			Pos: pos, EndPos: endPos,
			Object:   c.expression(n.ChildByFieldName("object")),
			Property: c.expression(n.ChildByFieldName("index")),
			Computed: true,
		}
	case "sequence_expression":
		return &ast.SequenceExpression{Pos: pos, EndPos: endPos, Expressions: c.sequence(n, nil)}
	}
	return &ast.UnsupportedExpression{Pos: pos, EndPos: endPos, Kind: estreeKind(n.Type())}
}

func (c *converter) operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}

func (c *converter) arguments(n *sitter.Node) []ast.Expression {
	kids := namedChildren(n)
	out := make([]ast.Expression, 0, len(kids))
	for _, arg := range kids {
		out = append(out, c.expression(arg))
	}
	return out
}

// sequence flattens nested sequence expressions; older grammars nest them
// to the right.
func (c *converter) sequence(n *sitter.Node, out []ast.Expression) []ast.Expression {
	for _, child := range namedChildren(n) {
		if child.Type() == "sequence_expression" {
			out = c.sequence(child, out)
			continue
		}
		out = append(out, c.expression(child))
	}
	return out
}

func (c *converter) number(n *sitter.Node) ast.Expression {
	raw := c.text(n)
	lit := &ast.Literal{Pos: start(n), EndPos: end(n), Kind: ast.NUMBER_LITERAL, Value: raw, Raw: raw}
	clean := strings.ReplaceAll(raw, "_", "")
	if strings.HasSuffix(clean, "n") {
		lit.Kind = ast.BIGINT_LITERAL
		lit.Value = strings.TrimSuffix(clean, "n")
		return lit
	}
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		lit.Value = strconv.FormatFloat(float64(i), 'g', -1, 64)
	} else if f, err := strconv.ParseFloat(clean, 64); err == nil {
		lit.Value = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return lit
}

// template splits the raw text of a template string around its
// substitutions, so quasis come out the same whatever fragment nodes the
// grammar emits.
func (c *converter) template(n *sitter.Node) ast.Expression {
	t := &ast.TemplateLiteral{Pos: start(n), EndPos: end(n)}
	cursor := n.StartByte() + 1
	for _, child := range namedChildren(n) {
		if child.Type() != "template_substitution" {
			continue
		}
		t.Quasis = append(t.Quasis, unescape(string(c.source[cursor:child.StartByte()])))
		t.Expressions = append(t.Expressions, c.expression(firstNamed(child)))
		cursor = child.EndByte()
	}
	last := n.EndByte()
	if last > cursor && c.source[last-1] == '`' {
		last--
	}
	if last < cursor {
		last = cursor
	}
	t.Quasis = append(t.Quasis, unescape(string(c.source[cursor:last])))
	return t
}

// array keeps holes as nil elements.
func (c *converter) array(n *sitter.Node) ast.Expression {
	a := &ast.ArrayExpression{Pos: start(n), EndPos: end(n)}
	expectElement := true
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		switch {
		case child.Type() == ",":
			if expectElement {
				a.Elements = append(a.Elements, nil)
			}
			expectElement = true
		case child.IsNamed():
			a.Elements = append(a.Elements, c.expression(child))
			expectElement = false
		}
	}
	return a
}

func (c *converter) object(n *sitter.Node) ast.Expression {
	o := &ast.ObjectExpression{Pos: start(n), EndPos: end(n)}
	for _, p := range namedChildren(n) {
		prop := &ast.Property{Pos: start(p), EndPos: end(p)}
		switch p.Type() {
		case "pair":
			prop.Key, prop.Computed = c.propertyKey(p.ChildByFieldName("key"))
			prop.Value = c.expression(p.ChildByFieldName("value"))
		case "shorthand_property_identifier":
			prop.Key = c.identifier(p)
			prop.Value = c.identifier(p)
			prop.Shorthand = true
		case "method_definition":
			if token(p, "get", "set") != nil {
				prop.Value = &ast.UnsupportedExpression{Pos: prop.Pos, EndPos: prop.EndPos, Kind: "MethodDefinition"}
				break
			}
			prop.Key, prop.Computed = c.propertyKey(p.ChildByFieldName("name"))
			fn := c.function(p, false)
			fn.ID = nil
			prop.Value = &ast.FunctionExpression{Pos: prop.Pos, EndPos: prop.EndPos, Function: fn}
		default:
			prop.Value = c.expression(p)
		}
		o.Properties = append(o.Properties, prop)
	}
	return o
}

func (c *converter) propertyKey(n *sitter.Node) (ast.Expression, bool) {
	if n == nil {
		return &ast.UnsupportedExpression{Kind: "MissingExpression"}, false
	}
	if n.Type() == "computed_property_name" {
		return c.expression(firstNamed(n)), true
	}
	return c.expression(n), false
}

func unquote(raw string) string {
	if len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	return unescape(raw)
}

// unescape decodes JavaScript string escapes.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 == len(s) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case 'x':
			if r, n := hexRune(s[i+1:], 2); n > 0 {
				b.WriteRune(r)
				i += n
			} else {
				b.WriteByte(e)
			}
		case 'u':
			r, n := unicodeEscape(s[i+1:])
			if n == 0 {
				b.WriteByte(e)
				break
			}
			i += n
			if utf16.IsSurrogate(r) && strings.HasPrefix(s[i+1:], `\u`) {
				if low, m := unicodeEscape(s[i+3:]); m > 0 {
					if pair := utf16.DecodeRune(r, low); pair != unicode.ReplacementChar {
						r = pair
						i += 2 + m
					}
				}
			}
			b.WriteRune(r)
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

// unicodeEscape decodes the part of a \u escape after the u, in either the
// XXXX or the {X...} form, and returns the bytes consumed.
func unicodeEscape(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		closing := strings.IndexByte(s, '}')
		if closing < 2 {
			return 0, 0
		}
		v, err := strconv.ParseUint(s[1:closing], 16, 32)
		if err != nil {
			return 0, 0
		}
		return rune(v), closing + 1
	}
	return hexRune(s, 4)
}

func hexRune(s string, digits int) (rune, int) {
	if len(s) < digits {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[:digits], 16, 32)
	if err != nil {
		return 0, 0
	}
	return rune(v), digits
}
