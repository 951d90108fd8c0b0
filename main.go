package main

import "github.com/llm-playground/llm-playground/cmd"

func main() {
	cmd.Execute()
}
