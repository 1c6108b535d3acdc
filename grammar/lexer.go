package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var DumpLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Annotation comments printed under block headers
		{"Comment", `;[^\n]*`, nil},

		{"String", `"(\\.|[^"\\])*"`, nil},

		// Value and block names (order matters, before identifiers)
		{"Ref", `%[0-9]+`, nil},
		{"Param", `\$[0-9]+`, nil},
		{"Const", `#[0-9]+`, nil},
		{"Block", `bb[0-9]+`, nil},

		// Keywords, constant kinds and function ids
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		{"Int", `[0-9]+`, nil},

		{"Punctuation", `[\[\]():,={}-]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
