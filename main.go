package main

import "github.com/svedentsov/chatstream/cmd"

func main() {
	cmd.Execute()
}
