package main

import (
	"github.com/AzielCF/az-mediahub/cmd"
)

func main() {
	cmd.Execute()
}
