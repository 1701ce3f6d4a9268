package main

import "vtt-fusion/cmd"

func main() {
	cmd.Execute()
}
