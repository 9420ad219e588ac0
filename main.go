package main

import (
	"github.com/consultant-1379/am-package-manager/cmd"
)

func main() {
	cmd.Execute()
}
