package main

import "winery-tank-backend/cmd/tankd/command"

func main() {
	command.Execute()
}
