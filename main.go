package main

import "github.com/RyanBlaney/acoustic-similarity/cmd"

func main() {
	cmd.Execute()
}
