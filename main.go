package main

import "potability/cmd"

func main() {
	cmd.Execute()
}
