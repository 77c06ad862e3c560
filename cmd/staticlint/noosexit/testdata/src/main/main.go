package main

import "os"

func main() {
	os.Exit(1) // want "avoid using os.Exit in main.main"
}

func helper() {
	// calls outside main.main are fine
	os.Exit(2)
}
