package main

import "github.com/guardline/payroll-engine/cmd"

func main() {
	cmd.Execute()
}
