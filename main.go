package main

import "github.com/audiolibrelab/readaloud/cmd"

func main() {
	cmd.Execute()
}
