// Command sample inspects a self-play reservoir log: how many records it
// holds, how many learning-target plies they carry, and how the recorded
// winners are distributed. It is the read-only counterpart to a training
// loop's Reservoir.Sample, useful for sanity-checking a log before it is
// handed to a trainer.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Nyashiki/minishogilib/record"
	"github.com/Nyashiki/minishogilib/reservoir"
)

var (
	logPath = flag.String("log", "", "path to a reservoir json-lines log")
	maxSize = flag.Int("max-size", 1<<20, "reservoir capacity to load into")
)

func main() {
	flag.Parse()
	if *logPath == "" {
		fmt.Fprintln(os.Stderr, "sample: -log is required")
		os.Exit(2)
	}

	r := reservoir.New(*logPath, *maxSize)
	if err := r.Load(*logPath); err != nil {
		fmt.Fprintf(os.Stderr, "sample: loading %s: %v\n", *logPath, err)
		os.Exit(1)
	}

	fmt.Printf("records: %d\n", r.Size())

	var targets, whiteWins, blackWins, draws int
	r.Each(func(rec record.Record) {
		targets += len(rec.LearningTargetPlys)
		switch rec.Winner {
		case record.Draw:
			draws++
		case 0:
			whiteWins++
		default:
			blackWins++
		}
	})

	fmt.Printf("learning targets: %d\n", targets)
	fmt.Printf("winners: white=%d black=%d draw=%d\n", whiteWins, blackWins, draws)
}
