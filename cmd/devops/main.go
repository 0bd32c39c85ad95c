package main

import (
	"fmt"
	"os"

	"github.com/systmms/devops/cmd/devops/commands"
	opserrors "github.com/systmms/devops/internal/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	env := commands.NewEnv()
	if err := commands.Execute(env, fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := opserrors.Hint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
