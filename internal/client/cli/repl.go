package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	pagesHelp() string
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Status(ctx context.Context) error
	Raw(ctx context.Context, method string, args []string) error
	Upload(ctx context.Context, args []string) error
	Page(ctx context.Context, name string, args []string) (bool, error)
}

// runREPL starts a simple read-eval-print loop for the pantry client.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF, when ctx is done, or when
// the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           - show available commands
//	  - login          - authenticate
//	  - status         - connectivity details
//	  - exit | quit    - leave the program
//
//	Logged in:
//	  - help                     - show available commands
//	  - get <path>               - fetch a resource (cached)
//	  - post | put <path> <json> - send a JSON body
//	  - delete <path>            - delete a resource
//	  - upload <path> k=v...     - multipart form, image=@file attaches a file
//	  - whoami | status          - session details
//	  - logout                   - log out
//	  - profile pages            - see help
//	  - exit | quit              - leave the program
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("pantry> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: get, post, put, delete, upload, whoami, status, logout, exit")
				if h := a.pagesHelp(); h != "" {
					printlnFn("Pages:", h)
				}
			} else {
				printlnFn("Available commands: login, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			if !a.isLoggedIn() {
				printlnFn("Please login first.")
				continue
			}
			switch cmd {
			case "get":
				_ = a.Raw(ctx, http.MethodGet, args)
			case "post":
				_ = a.Raw(ctx, http.MethodPost, args)
			case "put":
				_ = a.Raw(ctx, http.MethodPut, args)
			case "delete":
				_ = a.Raw(ctx, http.MethodDelete, args)
			case "upload":
				_ = a.Upload(ctx, args)
			default:
				if ok, _ := a.Page(ctx, cmd, args); !ok {
					printlnFn("Unknown command:", cmd)
				}
			}
		}
	}
}

func (a *App) pagesHelp() string {
	return pageHelp[a.config.Profile]
}
