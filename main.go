package main

import "segviewer/internal/app"

func main() {
	app.Main()
}
