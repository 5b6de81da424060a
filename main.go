package main

import "thoreinstein.com/crit/cmd"

func main() {
	cmd.Execute()
}
