package main

import "film-resolver/cmd"

func main() {
	cmd.Execute()
}
