// Command country-currency serves the Country Currency API.
package main

import "github.com/tbourn/go-country-currency/cmd"

func main() {
	cmd.Execute()
}
