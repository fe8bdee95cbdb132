package main

import (
	"fmt"
	"os"

	"github.com/jensroland/git-blameview/cmd"
)

var version = "dev"

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "--version" {
		fmt.Println("git-blameview", version)
		return
	}
	cmd.RunView(os.Args[1:])
}
