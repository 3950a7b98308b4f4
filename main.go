package main

import "github.com/killallgit/llt/cmd"

func main() {
	cmd.Execute()
}
