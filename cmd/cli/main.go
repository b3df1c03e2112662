package main

import "github.com/kushtati/kushtati-immo-api/cmd/cli/commands"

func main() {
	commands.Execute()
}
