package main

import "github.com/ambiyansyah-risyal/visualping/cmd/vpctl/cmd"

func main() {
	cmd.Execute()
}
