package main

import (
	"github.com/framerhq/framer/cmd"
	"github.com/framerhq/framer/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
