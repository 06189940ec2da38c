package main

import "github.com/Fox6935/kemono-epub-creator/cmd"

func main() {
	cmd.Execute()
}
