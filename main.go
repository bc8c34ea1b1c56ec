package main

import "github.com/isdelr/impact-be/cmd"

func main() {
	cmd.Execute()
}
