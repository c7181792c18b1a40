package main

import "mysql2ch/cmd"

func main() {
	cmd.Execute()
}
