package main

import "github.com/Justype/perfbench/cmd"

func main() {
	cmd.Execute()
}
