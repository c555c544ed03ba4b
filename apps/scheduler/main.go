package main

import (
	_ "time/tzdata"

	"github.com/smallbiznis/donora/internal/bootstrap"
	"go.uber.org/fx"
)

func main() {
	// No server module!
	fx.New(bootstrap.Scheduler()).Run()
}
