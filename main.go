package main

import "github.com/zkgraphlabs/zkgraph-gnark/cmd"

func main() {
	cmd.Execute()
}
