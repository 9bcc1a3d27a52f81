package main

import "github.com/maastricht-university/journal-emotion/cmd"

func main() {
	cmd.Execute()
}
