package main

import "github.com/tradeflow-dev/tradeflow/cmd/flowctl/cmd"

func main() {
	cmd.Execute()
}
