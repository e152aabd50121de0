package main

// Generates a synthetic JTL results file for exercising check-jtl locally:
//
//	go run scripts/gen_jtl.go -samples 5000 -error-pct 2 -out results.jtl

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		out      = flag.String("out", "results.jtl", "output path")
		samples  = flag.Int("samples", 1000, "number of samples")
		errorPct = flag.Float64("error-pct", 0, "percentage of samples failing with HTTP 500")
		baseMs   = flag.Int("base-ms", 80, "minimum response time in milliseconds")
		spreadMs = flag.Int("spread-ms", 240, "response time spread in milliseconds")
		tps      = flag.Float64("tps", 20, "request rate")
	)
	flag.Parse()

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	labels := []string{"Login", "Search", "Checkout", "Logout"}
	ts := time.Now().Add(-time.Hour).UnixMilli()
	interval := 1000.0 / *tps

	fmt.Fprintln(f, "timeStamp,elapsed,label,responseCode,success")
	for i := 0; i < *samples; i++ {
		elapsed := *baseMs + rand.Intn(*spreadMs)
		code, success := "200", "true"
		if *errorPct > 0 && rand.Float64()*100 < *errorPct {
			code, success = "500", "false"
		}
		fmt.Fprintf(f, "%d,%d,%s,%s,%s\n", ts, elapsed, labels[i%len(labels)], code, success)
		ts += int64(interval)
	}

	log.Printf("wrote %d samples to %s", *samples, *out)
}
