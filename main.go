/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/smartassist/apiserver/cmd"

func main() {
	cmd.Execute()
}
