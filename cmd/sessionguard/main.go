package main

import "github.com/MrEthical07/sessionguard/cmd/sessionguard/cmd"

func main() {
	cmd.Execute()
}
