// Command csv-merger serves the CSV merge workspace API over HTTP.
//
// The command-line merger lives in cmd/csvmerge.
package main

import (
	"context"
	"time"

	"github.com/FlavienRemy/csv-merger/internal/app"
)

const shutdownTimeout = 15 * time.Second

func main() {
	application := app.New()
	<-application.Start()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	application.Stop(ctx)
}
