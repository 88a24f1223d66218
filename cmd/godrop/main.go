package main

import "github.com/itohio/godrop/cmd/godrop/cmd"

func main() {
	cmd.Execute()
}
