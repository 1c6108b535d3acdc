// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"dbd/internal/lsp"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const lsName = "dbd" // Name identifier for the language server

var (
	version = "0.0.1"        // Server version
	handler protocol.Handler // Protocol handler instance (wired up below)
)

func main() {
	globals := flag.String("globals", "console", "comma-separated host globals bound in every buffer")
	flag.Parse()

	// Configure debug logging (1 = debug level, nil = default logger)
	commonlog.Configure(1, nil)

	var hostGlobals []string
	for _, name := range strings.Split(*globals, ",") {
		if name = strings.TrimSpace(name); name != "" {
			hostGlobals = append(hostGlobals, name)
		}
	}
	dbdHandler := lsp.NewHandler(hostGlobals...)

	handler = protocol.Handler{
		Initialize:                     dbdHandler.Initialize,
		Initialized:                    dbdHandler.Initialized,
		Shutdown:                       dbdHandler.Shutdown,
		SetTrace:                       dbdHandler.SetTrace,
		TextDocumentDidOpen:            dbdHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           dbdHandler.TextDocumentDidClose,
		TextDocumentDidChange:          dbdHandler.TextDocumentDidChange,
		TextDocumentHover:              dbdHandler.TextDocumentHover,
		TextDocumentSemanticTokensFull: dbdHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Printf("Starting dbd LSP server %s...", version)

	// Editors talk to the server over stdio
	err := s.RunStdio()
	if err != nil {
		log.Println("Error starting dbd LSP server:", err)
		os.Exit(1)
	}
}
