package main

import "github.com/amu-events/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
