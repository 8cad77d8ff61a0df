// Package cli provides the interactive pantry terminal client.
//
// It wires configuration, the durable token store, the resilient API client,
// the query cache and the per-application services, and runs a REPL on top
// of them. Typical flow: restore the previous session, prompt for login if
// there is none, then execute user commands.
//
// Key features:
//   - Login / Logout / Whoami / Status
//   - Raw requests: get, post, put, delete, upload (multipart)
//   - Profile pages: ingredients and meals, surprise bags and orders,
//     expenses and monthly summaries
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
