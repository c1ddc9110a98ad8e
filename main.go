package main

import "github.com/simlink/simlink/cmd"

func main() {
	cmd.Execute()
}
