package lower

import (
	"slices"

	"dbd/internal/ast"
	"dbd/internal/errors"
	"dbd/internal/ir"
	"dbd/internal/scope"
)

// jumpTarget is the break/continue destination of one enclosing loop,
// switch or labeled statement.
type jumpTarget struct {
	labels  []string
	breakTo ir.BlockID
	// continueTo is -1 for switches and labeled blocks.
	continueTo ir.BlockID
	// labelOnly targets are reachable only by a labeled break.
	labelOnly bool
}

// jumpTargets maintains the branch targets of the nested control structures
// of one function.
type jumpTargets struct {
	stack []jumpTarget
	// pending holds the labels of labeled statements whose loop has not
	// been entered yet.
	pending []string
}

func (t *jumpTargets) push(target jumpTarget) {
	t.stack = append(t.stack, target)
}

func (t *jumpTargets) pop() {
	t.stack = t.stack[:len(t.stack)-1]
}

// takePending returns and clears the labels that apply to the statement
// being entered.
func (t *jumpTargets) takePending() []string {
	labels := t.pending
	t.pending = nil
	return labels
}

// target finds the destination of a break or continue with an optional
// label.
func (t *jumpTargets) target(label string, isContinue bool) (ir.BlockID, bool) {
	for i := len(t.stack) - 1; i >= 0; i-- {
		target := t.stack[i]
		if label != "" && !slices.Contains(target.labels, label) {
			continue
		}
		if label == "" && target.labelOnly {
			continue
		}
		if !isContinue {
			return target.breakTo, true
		}
		if target.continueTo >= 0 {
			return target.continueTo, true
		}
		if label != "" {
			// continue to a label that is not a loop
			return 0, false
		}
	}
	return 0, false
}

func (l *lowerer) jump(s ast.Statement, label *ast.Identifier, isContinue bool) {
	name := ""
	if label != nil {
		name = label.Name
	}
	target, ok := l.fn.targets.target(name, isContinue)
	if !ok {
		kind := "break"
		if isContinue {
			kind = "continue"
		}
		l.skip(errors.ErrorNoJumpTarget, s, kind)
		return
	}
	l.fn.builder.Branch(target, ast.LocOf(s))
}

func (l *lowerer) labeledStatement(s *ast.LabeledStatement) {
	l.fn.targets.pending = append(l.fn.targets.pending, s.Label.Name)
	switch s.Body.(type) {
	case *ast.WhileStatement, *ast.DoWhileStatement, *ast.ForStatement,
		*ast.ForInStatement, *ast.SwitchStatement, *ast.LabeledStatement:
		l.statement(s.Body)
		return
	}

	b := l.fn.builder
	end := endOf(ast.LocOf(s))
	exit := b.CreateBlock(end)
	l.fn.targets.push(jumpTarget{labels: l.fn.targets.takePending(), breakTo: exit, continueTo: -1, labelOnly: true})
	l.statement(s.Body)
	l.fn.targets.pop()
	b.BranchIfOpen(exit, end)
	b.PushBlock(exit)
}

func (l *lowerer) ifStatement(s *ast.IfStatement) {
	b := l.fn.builder
	loc := ast.LocOf(s)
	test := l.expression(s.Test)

	consequent := b.CreateBlock(ast.LocOf(s.Consequent))
	alternate := ir.BlockID(-1)
	if s.Alternate != nil {
		alternate = b.CreateBlock(ast.LocOf(s.Alternate))
	}
	after := b.CreateBlock(endOf(loc))
	if alternate < 0 {
		b.Append(ir.NewConditionalBranch(test, consequent, after, ast.LocOf(s.Test)))
	} else {
		b.Append(ir.NewConditionalBranch(test, consequent, alternate, ast.LocOf(s.Test)))
	}

	b.PushBlock(consequent)
	l.statement(s.Consequent)
	b.BranchIfOpen(after, endOf(ast.LocOf(s.Consequent)))

	if s.Alternate != nil {
		b.PushBlock(alternate)
		l.statement(s.Alternate)
		b.BranchIfOpen(after, endOf(ast.LocOf(s.Alternate)))
	}
	b.PushBlock(after)
}

// loopBody lowers body into entry with the loop's jump targets installed.
// prologue, when set, runs first in entry. The body falls through to
// continueTo.
func (l *lowerer) loopBody(labels []string, breakTo, continueTo, entry ir.BlockID, body ast.Statement, prologue func()) {
	b := l.fn.builder
	b.PushBlock(entry)
	if prologue != nil {
		prologue()
	}
	l.fn.targets.push(jumpTarget{labels: labels, breakTo: breakTo, continueTo: continueTo})
	l.statement(body)
	l.fn.targets.pop()
	b.BranchIfOpen(continueTo, endOf(ast.LocOf(body)))
}

func (l *lowerer) whileStatement(s *ast.WhileStatement) {
	b := l.fn.builder
	loc := ast.LocOf(s)
	labels := l.fn.targets.takePending()

	header := b.CreateBlock(ast.LocOf(s.Test))
	b.Branch(header, loc)
	b.PushBlock(header)
	test := l.expression(s.Test)

	body := b.CreateBlock(ast.LocOf(s.Body))
	exit := b.CreateBlock(endOf(loc))
	b.Append(ir.NewConditionalBranch(test, body, exit, ast.LocOf(s.Test)))

	l.loopBody(labels, exit, header, body, s.Body, nil)
	b.PushBlock(exit)
}

func (l *lowerer) doWhileStatement(s *ast.DoWhileStatement) {
	b := l.fn.builder
	loc := ast.LocOf(s)
	labels := l.fn.targets.takePending()

	body := b.CreateBlock(ast.LocOf(s.Body))
	b.Branch(body, loc)
	check := b.CreateBlock(ast.LocOf(s.Test))
	exit := b.CreateBlock(endOf(loc))

	l.loopBody(labels, exit, check, body, s.Body, nil)

	b.PushBlock(check)
	test := l.expression(s.Test)
	b.Append(ir.NewConditionalBranch(test, body, exit, ast.LocOf(s.Test)))
	b.PushBlock(exit)
}

// lexicalLoop runs body inside its own region and block scope when the loop
// head declares let or const bindings, and directly otherwise.
func (l *lowerer) lexicalLoop(head ast.Node, loc ast.Location, body func()) {
	decl, ok := head.(*ast.VariableDeclaration)
	if !ok || decl.Kind == ast.VAR {
		body()
		return
	}
	l.region(loc, func() {
		l.withScope(scope.Block, loc, body)
	})
}

func (l *lowerer) forStatement(s *ast.ForStatement) {
	b := l.fn.builder
	loc := ast.LocOf(s)
	labels := l.fn.targets.takePending()

	l.lexicalLoop(s.Init, loc, func() {
		switch init := s.Init.(type) {
		case nil:
		case *ast.VariableDeclaration:
			l.variableDeclaration(init)
		case ast.Expression:
			l.expression(init)
		}

		header := b.CreateBlock(loc)
		b.Branch(header, loc)
		b.PushBlock(header)
		var test ir.Value
		if s.Test != nil {
			test = l.expression(s.Test)
		}

		body := b.CreateBlock(ast.LocOf(s.Body))
		update := b.CreateBlock(loc)
		exit := b.CreateBlock(endOf(loc))
		if test != nil {
			b.Append(ir.NewConditionalBranch(test, body, exit, ast.LocOf(s.Test)))
		} else {
			b.Branch(body, loc)
		}

		l.loopBody(labels, exit, update, body, s.Body, nil)

		b.PushBlock(update)
		if s.Update != nil {
			l.expression(s.Update)
		}
		b.Branch(header, loc)
		b.PushBlock(exit)
	})
}

// forInStatement lowers for-in and for-of loops. Each iteration asks the
// collection for its next item with "#iterator-next#"; the loop exits when
// the result is falsy and binds it to the loop variable otherwise.
func (l *lowerer) forInStatement(s *ast.ForInStatement) {
	b := l.fn.builder
	loc := ast.LocOf(s)
	labels := l.fn.targets.takePending()

	l.lexicalLoop(s.Left, loc, func() {
		collection := l.expression(s.Right)

		header := b.CreateBlock(loc)
		b.Branch(header, loc)
		b.PushBlock(header)
		item := l.call(nil, ir.Builtin(ir.IteratorNext, ""), []ir.Value{collection}, ast.LocOf(s.Right))

		body := b.CreateBlock(ast.LocOf(s.Body))
		exit := b.CreateBlock(endOf(loc))
		b.Append(ir.NewConditionalBranch(item, body, exit, loc))

		l.loopBody(labels, exit, header, body, s.Body, func() {
			l.bindLoopVariable(s.Left, item)
		})
		b.PushBlock(exit)
	})
}

func (l *lowerer) bindLoopVariable(left ast.Node, item ir.Value) {
	switch target := left.(type) {
	case *ast.VariableDeclaration:
		if len(target.Declarations) != 1 {
			l.skipPattern(target)
			return
		}
		id, ok := target.Declarations[0].ID.(*ast.Identifier)
		if !ok {
			l.skipPattern(target.Declarations[0].ID)
			return
		}
		if target.Kind == ast.VAR {
			l.assign(id, item)
			return
		}
		current := l.scopes.Current()
		sym := l.scopes.Declare(current, id.Name, id.Pos)
		l.store(scope.Binding{Symbol: sym, Scope: current}, item, ast.LocOf(id))
	case ast.Expression:
		l.assignTo(target, item)
	default:
		l.skipPattern(left)
	}
}

// switchStatement tests the cases in order with "#binary# ===" and falls
// through from each case body to the next one.
func (l *lowerer) switchStatement(s *ast.SwitchStatement) {
	b := l.fn.builder
	loc := ast.LocOf(s)
	labels := l.fn.targets.takePending()
	discriminant := l.expression(s.Discriminant)

	l.region(loc, func() {
		l.withScope(scope.Block, loc, func() {
			bodies := make([]ir.BlockID, len(s.Cases))
			for i, c := range s.Cases {
				bodies[i] = b.CreateBlock(ast.LocOf(c))
			}
			exit := b.CreateBlock(endOf(loc))

			fallback := exit
			lastTest := -1
			for i, c := range s.Cases {
				if c.Test == nil {
					fallback = bodies[i]
				} else {
					lastTest = i
				}
			}

			if lastTest < 0 {
				b.Branch(fallback, loc)
			}
			for i, c := range s.Cases {
				if c.Test == nil {
					continue
				}
				value := l.expression(c.Test)
				testLoc := ast.LocOf(c.Test)
				equal := l.call(nil, ir.Builtin(ir.BinaryOp, "==="), []ir.Value{discriminant, value}, testLoc)
				if i == lastTest {
					b.Append(ir.NewConditionalBranch(equal, bodies[i], fallback, testLoc))
					break
				}
				next := b.CreateBlock(testLoc)
				b.Append(ir.NewConditionalBranch(equal, bodies[i], next, testLoc))
				b.PushBlock(next)
			}

			l.fn.targets.push(jumpTarget{labels: labels, breakTo: exit, continueTo: -1})
			for i, c := range s.Cases {
				b.PushBlock(bodies[i])
				l.statements(c.Consequent)
				next := exit
				if i+1 < len(bodies) {
					next = bodies[i+1]
				}
				b.BranchIfOpen(next, endOf(ast.LocOf(c)))
			}
			l.fn.targets.pop()
			b.PushBlock(exit)
		})
	})
}

// tryStatement models the exception edges with "#may-throw#": the entry
// branches to the try block or the catch block, and so does the end of the
// try block. A throw inside the try block branches to the catch block.
func (l *lowerer) tryStatement(s *ast.TryStatement) {
	b := l.fn.builder
	loc := ast.LocOf(s)

	tryBlock := b.CreateBlock(ast.LocOf(s.Block))
	catchBlock := ir.BlockID(-1)
	if s.Handler != nil {
		catchBlock = b.CreateBlock(ast.LocOf(s.Handler))
	}
	finallyBlock := ir.BlockID(-1)
	if s.Finalizer != nil {
		finallyBlock = b.CreateBlock(ast.LocOf(s.Finalizer))
	}
	after := b.CreateBlock(endOf(loc))
	next := after
	if finallyBlock >= 0 {
		next = finallyBlock
	}

	if catchBlock >= 0 {
		mayThrow := l.call(nil, ir.Builtin(ir.MayThrow, ""), nil, loc)
		b.Append(ir.NewConditionalBranch(mayThrow, tryBlock, catchBlock, loc))
		l.fn.handlers = append(l.fn.handlers, catchBlock)
	} else {
		b.Branch(tryBlock, loc)
	}

	b.PushBlock(tryBlock)
	l.blockStatement(s.Block)
	tryEnd := endOf(ast.LocOf(s.Block))

	if catchBlock >= 0 {
		l.fn.handlers = l.fn.handlers[:len(l.fn.handlers)-1]
		if !b.CurrentIsTerminated() {
			mayThrow := l.call(nil, ir.Builtin(ir.MayThrow, ""), nil, tryEnd)
			b.Append(ir.NewConditionalBranch(mayThrow, catchBlock, next, tryEnd))
		}
		b.PushBlock(catchBlock)
		l.catchClause(s.Handler)
		b.BranchIfOpen(next, endOf(ast.LocOf(s.Handler)))
	} else {
		b.BranchIfOpen(next, tryEnd)
	}

	if finallyBlock >= 0 {
		b.PushBlock(finallyBlock)
		l.blockStatement(s.Finalizer)
		b.BranchIfOpen(after, endOf(ast.LocOf(s.Finalizer)))
	}
	b.PushBlock(after)
}

// catchClause binds the caught exception in a catch scope and lowers the
// handler body.
func (l *lowerer) catchClause(c *ast.CatchClause) {
	loc := ast.LocOf(c)
	l.withScope(scope.Catch, loc, func() {
		if c.Param != nil {
			exception := l.call(nil, ir.Builtin(ir.CaughtException, ""), nil, ast.LocOf(c.Param))
			if id, ok := c.Param.(*ast.Identifier); ok {
				current := l.scopes.Current()
				sym := l.scopes.Declare(current, id.Name, id.Pos)
				l.store(scope.Binding{Symbol: sym, Scope: current}, exception, ast.LocOf(id))
			} else {
				l.skipPattern(c.Param)
			}
		}
		l.blockStatement(c.Body)
	})
}
