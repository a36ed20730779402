package main

import (
	"os"

	"github.com/manav03panchal/personalvault/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
