package main

import "github.com/serialagent/gateway/cmd"

func main() {
	cmd.Execute()
}
