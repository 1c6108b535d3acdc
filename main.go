// SPDX-License-Identifier: Apache-2.0
package main

import (
	"dbd/repl"
	"fmt"
	"os"
	"os/user"
)

func main() {
	currentUser, err := user.Current()
	if err != nil {
		fmt.Printf("Error getting current user: %v\n", err)
		return
	}

	fmt.Printf("Welcome to the dbd REPL, %s!\n", currentUser.Username)
	fmt.Println("Type a line of JavaScript to see its IR, :liveness to toggle annotations.")
	repl.Start(os.Stdin, os.Stdout)
}
