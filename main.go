package main

import "PhaseProfiler/pkg/commands"

func main() {
	commands.Execute()
}
