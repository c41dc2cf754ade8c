package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mirkobrombin/go-tandem/v1/counter"
	"github.com/mirkobrombin/go-tandem/v1/driver"
	"github.com/mirkobrombin/go-tandem/v1/lock"
	"github.com/mirkobrombin/go-tandem/v1/validator"
)

var (
	ops       = flag.Int("ops", 200, "Increments per worker")
	amount    = flag.Int64("amount", 1, "Amount per increment")
	workDelay = flag.Duration("work", time.Millisecond, "Simulated work inside the critical section")
	delay     = flag.Duration("delay", 0, "Pause between a worker's increments")
	timeout   = flag.Duration("timeout", 5*time.Second, "Acquisition timeout")
	poll      = flag.Duration("poll", 50*time.Microsecond, "Poll interval while waiting")
	target    = flag.String("target", "all", "Target: peterson, mutex")
)

func main() {
	flag.Parse()

	targets := strings.Split(*target, ",")
	if *target == "all" {
		targets = []string{"peterson", "mutex"}
	}

	fmt.Printf("| %-10s | %-8s | %-10s | %-12s | %-12s | %-6s | %-6s |\n",
		"System", "Final", "Ops/sec", "Avg wait p0", "Avg wait p1", "Fails", "Audit")
	fmt.Println("|:---|:---|:---|:---|:---|:---|:---|")

	for _, t := range targets {
		runBenchmark(strings.TrimSpace(t))
	}
}

func runBenchmark(name string) {
	var l lock.Locker
	switch name {
	case "peterson":
		l = lock.NewPeterson(lock.WithTimeout(*timeout), lock.WithPollInterval(*poll))
	case "mutex":
		l = lock.NewMutex(*timeout, *poll)
	default:
		log.Printf("Unknown target: %s", name)
		return
	}

	amounts := make([]int64, *ops)
	for i := range amounts {
		amounts[i] = *amount
	}

	c := counter.New(l, counter.WithWorkDelay(*workDelay))
	rep, err := driver.Run(context.Background(), c,
		driver.Worker{Process: 0, Amounts: amounts, Delay: *delay},
		driver.Worker{Process: 1, Amounts: amounts, Delay: *delay},
	)
	if err != nil {
		fmt.Printf("| %-10s | %-8s | %-10s | %-12s | %-12s | %-6s | %-6s |\n", name, "ERROR", "-", "-", "-", "-", "-")
		return
	}

	completed := rep.Workers[0].Completed + rep.Workers[1].Completed
	fails := rep.Stats.Processes[0].Fails + rep.Stats.Processes[1].Fails
	throughput := float64(completed) / rep.Elapsed.Seconds()

	audit := "ok"
	if issues := validator.New(validator.ModeNoop).Audit(rep); len(issues) > 0 {
		audit = fmt.Sprintf("%d bad", len(issues))
	}

	fmt.Printf("| %-10s | %-8d | %-10.0f | %-12s | %-12s | %-6d | %-6s |\n",
		name, rep.Final, throughput,
		rep.Stats.Processes[0].AvgWait.Round(time.Microsecond),
		rep.Stats.Processes[1].AvgWait.Round(time.Microsecond),
		fails, audit)
}
