package main

import "github.com/Mar-Atn/NegotiationMaster-sub002/cmd/assessctl/cmd"

func main() {
	cmd.Execute()
}
