package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar of the IR text dump written by ir.Print.

type Dump struct {
	Functions []*Function `@@*`
}

type Function struct {
	Pos       lexer.Position
	ID        string       `"function" @(Ident | Int)`
	Name      string       `@String`
	Signature string       `@String`
	File      string       `"file" @String`
	Params    []*ParamDecl `@@*`
	Consts    []*ConstDecl `@@*`
	Scopes    []*ScopeDecl `@@*`
	Blocks    []*Block     `@@*`
	End       string       `"end"`
}

type ParamDecl struct {
	Pos  lexer.Position
	ID   string `"param" @Param`
	Name string `@String`
}

type ConstDecl struct {
	Pos  lexer.Position
	ID   string `"const" @Const`
	Kind string `@Ident`
	Text string `@String`
}

type ScopeDecl struct {
	Pos lexer.Position
	ID  string `"scope" @Ref`
	// Parent is empty for "parent none".
	Parent string `"parent" ( @Ref | "none" )`
}

type Block struct {
	Pos          lexer.Position
	Label        string         `@Block`
	Loc          *Location      `@@`
	Instructions []*Instruction `"{" @@* "}"`
}

type Location struct {
	StartLine   int `"[" @Int ":"`
	StartColumn int `@Int ":"`
	StartOffset int `@Int "-"`
	EndLine     int `@Int ":"`
	EndColumn   int `@Int ":"`
	EndOffset   int `@Int "]"`
}

type Instruction struct {
	Pos         lexer.Position
	Call        *Call        `  @@`
	Branch      *Branch      `| @@`
	Conditional *Conditional `| @@`
	Return      *Exit        `| "ret" @@`
	Throw       *Exit        `| "throw" @@`
}

type Call struct {
	Result    string     `@Ref "=" "call"`
	Name      string     `@String`
	Receiver  *Operand   `( "on" @@ )?`
	Arguments []*Operand `"(" ( @@ ( "," @@ )* )? ")"`
	Loc       *Location  `@@`
}

type Branch struct {
	Target string    `"br" @Block`
	Loc    *Location `@@`
}

type Conditional struct {
	Condition  *Operand  `"cbr" @@`
	Consequent string    `@Block`
	Alternate  string    `@Block`
	Loc        *Location `@@`
}

type Exit struct {
	Value *Operand  `@@`
	Loc   *Location `@@`
}

type Operand struct {
	Pos  lexer.Position
	Text string `@(Ref | Param | Const)`
}
