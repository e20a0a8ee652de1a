/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/newdaybreak/careers/cmd"

func main() {
	cmd.Execute()
}
