package main

import "filmpalette-backend/cmd/filmpalette/commands"

func main() {
	commands.Execute()
}
