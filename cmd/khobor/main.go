package main

import (
	"os"

	"khobor.news/khobor/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
