package main

import "github.com/stephnangue/profilebridge/cmd"

func main() {
	cmd.Execute()
}
