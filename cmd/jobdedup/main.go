package main

import (
	"os"

	"horse.fit/jobdedup/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
