package main

import "github.com/tylertayyk/pairs-trading/cmd"

func main() {
	cmd.Execute()
}
