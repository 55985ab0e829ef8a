/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/clikanban/kanban/cmd"

func main() {
	cmd.Execute()
}
