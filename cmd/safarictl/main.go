// cmd/safarictl/main.go
//
// safarictl – back-office CLI for the safari API.
//
// Commands
// --------
//
//	safarictl login  --email you@example.com        (password from stdin)
//	safarictl logout
//	safarictl whoami
//	safarictl list   <entity>
//	safarictl get    <entity> <id>
//	safarictl create <entity> key=value key:=json key=@image.jpg ...
//	safarictl edit   <entity> <id> key=value ...
//	safarictl delete <entity> <id> [--yes]
//
// The API base URL comes from --url, then SAFARI_API_URL, then
// NEXT_PUBLIC_APP_URL, then VERCEL_URL (as https://), then
// http://localhost:8080.  The token lives in the user config dir under
// safarictl/credentials.yaml unless --token-file says otherwise.
//
// Exit status is 1 on any error; the message is printed to stderr.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
