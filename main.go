package main

import "github.com/refrun/refrun/cmd"

func main() {
	cmd.Execute()
}
