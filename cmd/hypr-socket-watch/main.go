package main

import "github.com/khaneliman/hypr-socket-watch/cmd/hypr-socket-watch/commands"

func main() {
	commands.Execute()
}
