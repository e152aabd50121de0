// cmd/check-jtl/main.go
package main

import (
	"github.com/avtr-nvivas/check-jtl/cmd/check-jtl/cmd"
)

func main() {
	cmd.Execute()
}
