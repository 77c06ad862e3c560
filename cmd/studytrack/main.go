package main

import (
	"log"

	"github.com/patric-chuzhbe/studytrack/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalln(err)
	}
	defer application.Close()

	err = application.Run(application.Args())
	if err != nil {
		application.Close()
		log.Fatalln(err)
	}
}
