package main

import "github.com/kozaktomas/chronoface/cmd"

func main() {
	cmd.Execute()
}
