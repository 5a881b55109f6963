package main

import (
	cmd "github.com/rohmanhakim/image-cache/internal/cli"
)

func main() {
	cmd.Execute()
}
