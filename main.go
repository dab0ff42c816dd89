package main

import "github.com/Iamcodio/IAC-30-brain-dump-voice-processor/cmd"

func main() {
	cmd.Execute()
}
