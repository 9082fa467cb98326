package main

import "github.com/Mohsinsiddi/presalectl/cmd"

func main() {
	cmd.Execute()
}
