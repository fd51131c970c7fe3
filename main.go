package main

import "github.com/melkeydev/mcp-ingest/cli"

func main() {
	cli.Execute()
}
