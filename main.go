package main

import "github.com/CyanoKobalamyne/msgstore/cmd"

func main() {
	cmd.Execute()
}
