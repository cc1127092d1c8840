package main

import (
	"context"
	"errors"
	"log"
	"os"
	"runtime/debug"

	"github.com/jrsteele09/go-auth-session/internal/cli"
	"github.com/jrsteele09/go-auth-session/internal/config"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	return cli.NewRootCmd(config.New()).ExecuteContext(context.Background())
}
