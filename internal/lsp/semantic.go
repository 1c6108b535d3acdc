package lsp

import (
	"fmt"
	"sort"
	"strings"

	"dbd/internal/analysis"
	"dbd/internal/ast"
	"dbd/internal/ir"
)

// SemanticTokenTypes is the token type legend.
var SemanticTokenTypes = []string{
	"variable",
}

// SemanticTokenModifiers is the token modifier legend. A write at the
// declaring position is a declaration; any other write is a modification.
var SemanticTokenModifiers = []string{
	"declaration",
	"modification",
}

const (
	tokenVariable = 0

	modifierDeclaration  = 1 << 0
	modifierModification = 1 << 1
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into SemanticTokenTypes
// TokenModifiers is a bitmask based on SemanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

// collectSemanticTokens turns the recorded variable occurrences of every
// unit into tokens sorted by position. Occurrences at the same position,
// such as the read and the write of "x += 1", merge into one token.
func collectSemanticTokens(a *analysis.Analysis) []SemanticToken {
	byPos := map[[2]uint32]*SemanticToken{}
	for _, unit := range a.Result.Units {
		for _, occs := range unit.References {
			for _, occ := range occs {
				start := occ.Loc.Start
				if start.Line == 0 {
					continue
				}
				key := [2]uint32{uint32(start.Line - 1), uint32(start.Column)}
				token, ok := byPos[key]
				if !ok {
					token = &SemanticToken{
						Line:      key[0],
						StartChar: key[1],
						Length:    uint32(len(occ.Symbol.Name)),
						TokenType: tokenVariable,
					}
					byPos[key] = token
				}
				if occ.Access == ir.Write {
					if start == occ.Symbol.Decl {
						token.TokenModifiers |= modifierDeclaration
					} else {
						token.TokenModifiers |= modifierModification
					}
				}
			}
		}
	}

	tokens := make([]SemanticToken, 0, len(byPos))
	for _, token := range byPos {
		tokens = append(tokens, *token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].Line != tokens[j].Line {
			return tokens[i].Line < tokens[j].Line
		}
		return tokens[i].StartChar < tokens[j].StartChar
	})
	return tokens
}

// hoverText renders the block under pos: its unit, live-in and live-out
// sets and instructions.
func hoverText(a *analysis.Analysis, pos ast.Position) string {
	unit, block := a.BlockAt(pos)
	if block == nil {
		return ""
	}
	lv := a.Table(unit.Info.ID).Block(block.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s` %s\n\n", unit.Info.Definition.Name, unit.Info.Definition.Signature, block.ID)
	fmt.Fprintf(&b, "live-in: %s\n\n", list(lv.In.Names()))
	fmt.Fprintf(&b, "live-out: %s\n\n", list(lv.Out.Names()))
	b.WriteString("```\n")
	fmt.Fprintf(&b, "%s:\n", block.ID)
	for _, inst := range block.Instructions {
		fmt.Fprintf(&b, "  %s\n", inst)
	}
	b.WriteString("```\n")
	return b.String()
}

func list(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
