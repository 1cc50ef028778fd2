package main

import "github.com/iksnae/vibe-context/cmd"

func main() {
	cmd.Execute()
}
