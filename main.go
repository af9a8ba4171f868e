package main

import "github.com/zinc-sig/pulse/cmd"

func main() {
	cmd.Execute()
}
