package main

import (
	"context"

	"github.com/fakeyudi/syllabus/cmd"
)

func main() {
	cmd.Execute(context.Background())
}
