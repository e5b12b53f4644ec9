package main

import (
	"os"

	"almpartners/dbdeploy/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
