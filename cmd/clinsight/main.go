package main

import "github.com/KaramelBytes/clinsight-cli/cmd"

func main() {
	cmd.Execute()
}
