package main

import "slidecraft/client/slidecraft-cli/cmd"

func main() {
	cmd.Execute()
}
