package ast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// DecodeESTree reads an ESTree JSON document (as produced by ESLint, acorn or
// espree with locations and ranges enabled) and converts it to a Program.
// Node kinds outside the modelled set decode to Unsupported nodes rather than
// failing, so a partial tree is still usable. A modelled node whose required
// children are missing or malformed is an error.
func DecodeESTree(r io.Reader) (*Program, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode estree: %w", err)
	}
	root, err := parseRawNode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode estree: %w", err)
	}
	if root == nil || root.Type != string(PROGRAM) {
		return nil, fmt.Errorf("decode estree: root node is not a Program")
	}
	d := &estreeDecoder{}
	program := &Program{Pos: root.start(), EndPos: root.end()}
	program.Body = d.statements(d.list(root, "body"))
	if len(d.errs) > 0 {
		return nil, errors.Join(d.errs...)
	}
	return program, nil
}

type rawNode struct {
	Type   string
	fields map[string]json.RawMessage
	loc    estreeLoc
	// offsets of the node in the source, from "range" or "start"/"end"
	from, to int
}

type estreeLoc struct {
	Start struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"start"`
	End struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"end"`
}

func parseRawNode(data json.RawMessage) (*rawNode, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("node is not an object: %s", abbreviate(data))
	}
	n := &rawNode{fields: fields}
	if t, ok := fields["type"]; ok {
		if err := json.Unmarshal(t, &n.Type); err != nil {
			return nil, fmt.Errorf("node type: %w", err)
		}
	}
	if data, ok := fields["loc"]; ok {
		if err := json.Unmarshal(data, &n.loc); err != nil {
			return nil, fmt.Errorf("%s loc: %w", n.Type, err)
		}
	}
	if err := n.decodeOffsets(); err != nil {
		return nil, fmt.Errorf("%s offsets: %w", n.Type, err)
	}
	return n, nil
}

// decodeOffsets prefers "range" (espree) and falls back to "start"/"end"
// (acorn).
func (n *rawNode) decodeOffsets() error {
	if data, ok := n.fields["range"]; ok {
		var r []int
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		if len(r) != 2 {
			return fmt.Errorf("range has %d elements", len(r))
		}
		n.from, n.to = r[0], r[1]
		return nil
	}
	if data, ok := n.fields["start"]; ok {
		if err := json.Unmarshal(data, &n.from); err != nil {
			return err
		}
	}
	if data, ok := n.fields["end"]; ok {
		if err := json.Unmarshal(data, &n.to); err != nil {
			return err
		}
	}
	return nil
}

func abbreviate(data json.RawMessage) string {
	const limit = 32
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}

func (n *rawNode) start() Position {
	return Position{Offset: n.from, Line: n.loc.Start.Line, Column: n.loc.Start.Column}
}

func (n *rawNode) end() Position {
	return Position{Offset: n.to, Line: n.loc.End.Line, Column: n.loc.End.Column}
}

// estreeDecoder converts raw nodes and collects every malformed field it
// meets, so one decode reports all of them.
type estreeDecoder struct {
	errs []error
}

func (d *estreeDecoder) fail(n *rawNode, format string, args ...any) {
	pos := n.start()
	d.errs = append(d.errs, fmt.Errorf("decode estree: %s at %d:%d: %s", n.Type, pos.Line, pos.Column, fmt.Sprintf(format, args...)))
}

// child returns the optional child node under key.
func (d *estreeDecoder) child(n *rawNode, key string) *rawNode {
	child, err := parseRawNode(n.fields[key])
	if err != nil {
		d.fail(n, "%s: %v", key, err)
		return nil
	}
	return child
}

// required returns the child node under key and reports it when absent.
func (d *estreeDecoder) required(n *rawNode, key string) *rawNode {
	data := n.fields[key]
	child, err := parseRawNode(data)
	switch {
	case err != nil:
		d.fail(n, "%s: %v", key, err)
	case child == nil:
		d.fail(n, "missing %s", key)
	}
	return child
}

// list returns the nodes of the array under key. Null elements are kept as
// nil; they are array holes.
func (d *estreeDecoder) list(n *rawNode, key string) []*rawNode {
	data, ok := n.fields[key]
	if !ok || string(data) == "null" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		d.fail(n, "%s is not an array", key)
		return nil
	}
	out := make([]*rawNode, 0, len(items))
	for i, item := range items {
		child, err := parseRawNode(item)
		if err != nil {
			d.fail(n, "%s[%d]: %v", key, i, err)
			continue
		}
		out = append(out, child)
	}
	return out
}

func (d *estreeDecoder) str(n *rawNode, key string) string {
	var s string
	if data, ok := n.fields[key]; ok && string(data) != "null" {
		if err := json.Unmarshal(data, &s); err != nil {
			d.fail(n, "%s is not a string", key)
		}
	}
	return s
}

func (d *estreeDecoder) flag(n *rawNode, key string) bool {
	var b bool
	if data, ok := n.fields[key]; ok && string(data) != "null" {
		if err := json.Unmarshal(data, &b); err != nil {
			d.fail(n, "%s is not a boolean", key)
		}
	}
	return b
}

func (d *estreeDecoder) statements(nodes []*rawNode) []Statement {
	out := make([]Statement, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, d.statement(n))
	}
	return out
}

func (d *estreeDecoder) statement(n *rawNode) Statement {
	if n == nil {
		return nil
	}
	pos, end := n.start(), n.end()
	switch NodeType(n.Type) {
	case BLOCK_STATEMENT:
		return d.block(n)
	case EMPTY_STATEMENT:
		return &EmptyStatement{Pos: pos, EndPos: end}
	case EXPRESSION_STATEMENT:
		return &ExpressionStatement{Pos: pos, EndPos: end, Expression: d.expression(d.required(n, "expression"))}
	case VARIABLE_DECLARATION:
		return d.variableDeclaration(n)
	case FUNCTION_DECLARATION:
		return &FunctionDeclaration{Pos: pos, EndPos: end, Function: d.function(n, false)}
	case RETURN_STATEMENT:
		return &ReturnStatement{Pos: pos, EndPos: end, Argument: d.expression(d.child(n, "argument"))}
	case IF_STATEMENT:
		return &IfStatement{
			Pos: pos, EndPos: end,
			Test:       d.expression(d.required(n, "test")),
			Consequent: d.statement(d.required(n, "consequent")),
			Alternate:  d.statement(d.child(n, "alternate")),
		}
	case WHILE_STATEMENT:
		return &WhileStatement{Pos: pos, EndPos: end, Test: d.expression(d.required(n, "test")), Body: d.statement(d.required(n, "body"))}
	case DO_WHILE_STATEMENT:
		return &DoWhileStatement{Pos: pos, EndPos: end, Body: d.statement(d.required(n, "body")), Test: d.expression(d.required(n, "test"))}
	case FOR_STATEMENT:
		return &ForStatement{
			Pos: pos, EndPos: end,
			Init:   d.forHead(d.child(n, "init")),
			Test:   d.expression(d.child(n, "test")),
			Update: d.expression(d.child(n, "update")),
			Body:   d.statement(d.required(n, "body")),
		}
	case FOR_IN_STATEMENT, FOR_OF_STATEMENT:
		return &ForInStatement{
			Pos: pos, EndPos: end,
			Left:  d.forHead(d.required(n, "left")),
			Right: d.expression(d.required(n, "right")),
			Body:  d.statement(d.required(n, "body")),
			Of:    n.Type == string(FOR_OF_STATEMENT),
		}
	case BREAK_STATEMENT:
		return &BreakStatement{Pos: pos, EndPos: end, Label: d.identifier(d.child(n, "label"))}
	case CONTINUE_STATEMENT:
		return &ContinueStatement{Pos: pos, EndPos: end, Label: d.identifier(d.child(n, "label"))}
	case LABELED_STATEMENT:
		return &LabeledStatement{Pos: pos, EndPos: end, Label: d.identifier(d.required(n, "label")), Body: d.statement(d.required(n, "body"))}
	case SWITCH_STATEMENT:
		s := &SwitchStatement{Pos: pos, EndPos: end, Discriminant: d.expression(d.required(n, "discriminant"))}
		for _, c := range d.list(n, "cases") {
			if c == nil {
				continue
			}
			s.Cases = append(s.Cases, &SwitchCase{
				Pos: c.start(), EndPos: c.end(),
				Test:       d.expression(d.child(c, "test")),
				Consequent: d.statements(d.list(c, "consequent")),
			})
		}
		return s
	case THROW_STATEMENT:
		return &ThrowStatement{Pos: pos, EndPos: end, Argument: d.expression(d.required(n, "argument"))}
	case TRY_STATEMENT:
		t := &TryStatement{Pos: pos, EndPos: end, Block: d.block(d.required(n, "block"))}
		if h := d.child(n, "handler"); h != nil {
			t.Handler = &CatchClause{Pos: h.start(), EndPos: h.end(), Param: d.expression(d.child(h, "param")), Body: d.block(d.required(h, "body"))}
		}
		if f := d.child(n, "finalizer"); f != nil {
			t.Finalizer = d.block(f)
		}
		return t
	}
	return &UnsupportedStatement{Pos: pos, EndPos: end, Kind: n.Type}
}

func (d *estreeDecoder) block(n *rawNode) *BlockStatement {
	if n == nil {
		return nil
	}
	return &BlockStatement{Pos: n.start(), EndPos: n.end(), Body: d.statements(d.list(n, "body"))}
}

func (d *estreeDecoder) forHead(n *rawNode) Node {
	if n == nil {
		return nil
	}
	if n.Type == string(VARIABLE_DECLARATION) {
		return d.variableDeclaration(n)
	}
	return d.expression(n)
}

func (d *estreeDecoder) variableDeclaration(n *rawNode) *VariableDeclaration {
	decl := &VariableDeclaration{Pos: n.start(), EndPos: n.end(), Kind: VariableKind(d.str(n, "kind"))}
	for _, v := range d.list(n, "declarations") {
		if v == nil {
			continue
		}
		decl.Declarations = append(decl.Declarations, &VariableDeclarator{
			Pos: v.start(), EndPos: v.end(),
			ID:   d.expression(d.required(v, "id")),
			Init: d.expression(d.child(v, "init")),
		})
	}
	return decl
}

func (d *estreeDecoder) function(n *rawNode, arrow bool) *Function {
	f := &Function{
		Pos: n.start(), EndPos: n.end(),
		ID:        d.identifier(d.child(n, "id")),
		Arrow:     arrow,
		Async:     d.flag(n, "async"),
		Generator: d.flag(n, "generator"),
	}
	f.Params = d.expressions(n, "params", false)
	body := d.required(n, "body")
	if body != nil && body.Type == string(BLOCK_STATEMENT) {
		f.Body = d.block(body)
	} else {
		f.ExprBody = d.expression(body)
	}
	return f
}

func (d *estreeDecoder) identifier(n *rawNode) *Identifier {
	if n == nil {
		return nil
	}
	if n.Type != string(IDENTIFIER) {
		d.fail(n, "expected an Identifier")
		return nil
	}
	return &Identifier{Pos: n.start(), EndPos: n.end(), Name: d.str(n, "name")}
}

// expressions decodes the array under key. Only array literals may have
// holes; anywhere else a null element is reported.
func (d *estreeDecoder) expressions(n *rawNode, key string, holes bool) []Expression {
	nodes := d.list(n, key)
	out := make([]Expression, 0, len(nodes))
	for i, item := range nodes {
		if item == nil && !holes {
			d.fail(n, "%s[%d] is null", key, i)
			continue
		}
		out = append(out, d.expression(item))
	}
	return out
}

func (d *estreeDecoder) expression(n *rawNode) Expression {
	if n == nil {
		return nil
	}
	pos, end := n.start(), n.end()
	switch NodeType(n.Type) {
	case IDENTIFIER:
		return d.identifier(n)
	case LITERAL:
		return d.literal(n)
	case TEMPLATE_LITERAL:
		t := &TemplateLiteral{Pos: pos, EndPos: end, Expressions: d.expressions(n, "expressions", false)}
		for _, q := range d.list(n, "quasis") {
			var value struct {
				Cooked string `json:"cooked"`
			}
			if q == nil {
				d.fail(n, "null quasi")
			} else if err := json.Unmarshal(q.fields["value"], &value); err != nil {
				d.fail(q, "value: %v", err)
			}
			t.Quasis = append(t.Quasis, value.Cooked)
		}
		return t
	case ARRAY_EXPRESSION:
		return &ArrayExpression{Pos: pos, EndPos: end, Elements: d.expressions(n, "elements", true)}
	case OBJECT_EXPRESSION:
		o := &ObjectExpression{Pos: pos, EndPos: end}
		for _, p := range d.list(n, "properties") {
			if p == nil {
				continue
			}
			if p.Type != string(PROPERTY) {
				o.Properties = append(o.Properties, &Property{
					Pos: p.start(), EndPos: p.end(),
					Value: &UnsupportedExpression{Pos: p.start(), EndPos: p.end(), Kind: p.Type},
				})
				continue
			}
			o.Properties = append(o.Properties, &Property{
				Pos: p.start(), EndPos: p.end(),
				Key:       d.expression(d.required(p, "key")),
				Value:     d.expression(d.required(p, "value")),
				Computed:  d.flag(p, "computed"),
				Shorthand: d.flag(p, "shorthand"),
			})
		}
		return o
	case FUNCTION_EXPRESSION:
		return &FunctionExpression{Pos: pos, EndPos: end, Function: d.function(n, false)}
	case ARROW_FUNCTION:
		return &FunctionExpression{Pos: pos, EndPos: end, Function: d.function(n, true)}
	case UNARY_EXPRESSION:
		return &UnaryExpression{Pos: pos, EndPos: end, Operator: d.str(n, "operator"), Argument: d.expression(d.required(n, "argument"))}
	case UPDATE_EXPRESSION:
		return &UpdateExpression{Pos: pos, EndPos: end, Operator: d.str(n, "operator"), Prefix: d.flag(n, "prefix"), Argument: d.expression(d.required(n, "argument"))}
	case BINARY_EXPRESSION:
		return &BinaryExpression{Pos: pos, EndPos: end, Operator: d.str(n, "operator"), Left: d.expression(d.required(n, "left")), Right: d.expression(d.required(n, "right"))}
	case LOGICAL_EXPRESSION:
		return &LogicalExpression{Pos: pos, EndPos: end, Operator: d.str(n, "operator"), Left: d.expression(d.required(n, "left")), Right: d.expression(d.required(n, "right"))}
	case ASSIGNMENT_EXPRESSION:
		return &AssignmentExpression{Pos: pos, EndPos: end, Operator: d.str(n, "operator"), Left: d.expression(d.required(n, "left")), Right: d.expression(d.required(n, "right"))}
	case CONDITIONAL_EXPRESSION:
		return &ConditionalExpression{
			Pos: pos, EndPos: end,
			Test:       d.expression(d.required(n, "test")),
			Consequent: d.expression(d.required(n, "consequent")),
			Alternate:  d.expression(d.required(n, "alternate")),
		}
	case CALL_EXPRESSION:
		return &CallExpression{Pos: pos, EndPos: end, Callee: d.expression(d.required(n, "callee")), Arguments: d.expressions(n, "arguments", false)}
	case NEW_EXPRESSION:
		return &NewExpression{Pos: pos, EndPos: end, Callee: d.expression(d.required(n, "callee")), Arguments: d.expressions(n, "arguments", false)}
	case MEMBER_EXPRESSION:
		return &MemberExpression{Pos: pos, EndPos: end, Object: d.expression(d.required(n, "object")), Property: d.expression(d.required(n, "property")), Computed: d.flag(n, "computed")}
	case SEQUENCE_EXPRESSION:
		return &SequenceExpression{Pos: pos, EndPos: end, Expressions: d.expressions(n, "expressions", false)}
	case THIS_EXPRESSION:
		return &ThisExpression{Pos: pos, EndPos: end}
	}
	switch n.Type {
	case "ChainExpression", "ParenthesizedExpression", "TSNonNullExpression", "TSAsExpression":
		return d.expression(d.required(n, "expression"))
	}
	return &UnsupportedExpression{Pos: pos, EndPos: end, Kind: n.Type}
}

func (d *estreeDecoder) literal(n *rawNode) *Literal {
	lit := &Literal{Pos: n.start(), EndPos: n.end(), Raw: d.str(n, "raw")}
	if _, ok := n.fields["regex"]; ok {
		lit.Kind = REGEXP_LITERAL
		lit.Value = lit.Raw
		return lit
	}
	if bigint := d.str(n, "bigint"); bigint != "" {
		lit.Kind = BIGINT_LITERAL
		lit.Value = bigint
		return lit
	}
	var value any
	if data, ok := n.fields["value"]; ok {
		if err := json.Unmarshal(data, &value); err != nil {
			d.fail(n, "value: %v", err)
		}
	}
	switch v := value.(type) {
	case nil:
		lit.Kind = NULL_LITERAL
		lit.Value = "null"
	case bool:
		lit.Kind = BOOLEAN_LITERAL
		lit.Value = strconv.FormatBool(v)
	case float64:
		lit.Kind = NUMBER_LITERAL
		lit.Value = strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		lit.Kind = STRING_LITERAL
		lit.Value = v
	default:
		lit.Kind = STRING_LITERAL
		lit.Value = lit.Raw
	}
	return lit
}
