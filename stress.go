package main

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fanpei91/waitq/synch"
)

type stressOpts struct {
	threads  int
	channels int
	wakers   int
	timeout  time.Duration
	duration time.Duration
	killRate float64
}

type stressReport struct {
	Elapsed string      `json:"elapsed"`
	Results stressCount `json:"results"`
	Stats   synch.Stats `json:"stats"`
}

type stressCount struct {
	Woken       uint64 `json:"woken"`
	TimedOut    uint64 `json:"timed_out"`
	Interrupted uint64 `json:"interrupted"`
	Restarted   uint64 `json:"restarted"`
}

func (c *stressCount) add(err error) {
	switch errors.Cause(err) {
	case nil:
		c.Woken++
	case synch.ErrWouldBlock:
		c.TimedOut++
	case synch.ErrInterrupted:
		c.Interrupted++
	case synch.ErrRestart:
		c.Restarted++
	}
}

// runStress hammers one scheduler with sleepers on a few channels while
// wakers wake and signal them at random.
func runStress(ctx context.Context, conf *config, o stressOpts) (report stressReport, err error) {
	if o.threads < 1 || o.channels < 1 || o.wakers < 1 {
		err = errors.Errorf("threads, channels and wakers must be positive")
		return
	}

	sched := synch.New(conf.scheduler())
	proc := sched.NewProcess()
	proc.SetRestart(synch.SIGUSR1, true)

	chans := make([]synch.Chan, o.channels)
	for i := range chans {
		chans[i] = synch.Chan((i + 1) << 12)
	}

	ctx, cancel := context.WithTimeout(ctx, o.duration)
	defer cancel()
	go sched.Run(ctx)

	start := time.Now()
	var mu sync.Mutex
	var total stressCount
	var sleepers sync.WaitGroup
	threads := make([]*synch.Thread, 0, o.threads)
	for i := 0; i < o.threads; i++ {
		sleepers.Add(1)
		rng := rand.New(rand.NewSource(int64(i)))
		th := sched.Spawn(proc, func(t *synch.Thread) {
			defer sleepers.Done()
			var count stressCount
			for ctx.Err() == nil {
				c := chans[rng.Intn(len(chans))]
				err := sched.Tsleep(t, c, synch.PUser, synch.Catch, "stress", o.timeout)
				count.add(err)
				if err != nil {
					sched.TakeSignal(t)
				}
			}
			mu.Lock()
			total.Woken += count.Woken
			total.TimedOut += count.TimedOut
			total.Interrupted += count.Interrupted
			total.Restarted += count.Restarted
			mu.Unlock()
		})
		threads = append(threads, th)
	}

	var wakers sync.WaitGroup
	for i := 0; i < o.wakers; i++ {
		wakers.Add(1)
		rng := rand.New(rand.NewSource(int64(o.threads + i)))
		go func() {
			defer wakers.Done()
			for ctx.Err() == nil {
				c := chans[rng.Intn(len(chans))]
				switch p := rng.Float64(); {
				case p < o.killRate:
					sig := synch.SIGINT
					if rng.Intn(2) == 0 {
						sig = synch.SIGUSR1
					}
					sched.Kill(threads[rng.Intn(len(threads))], sig)
				case p < 0.5:
					sched.WakeupOne(c)
				default:
					sched.Wakeup(c)
				}
			}
		}()
	}

	<-ctx.Done()
	wakers.Wait()

	// Flush anyone still asleep without a timeout.
	drained := make(chan struct{})
	go func() {
		sleepers.Wait()
		close(drained)
	}()
	for flushing := true; flushing; {
		for _, c := range chans {
			sched.Wakeup(c)
		}
		select {
		case <-drained:
			flushing = false
		case <-time.After(time.Millisecond):
		}
	}

	// Spawned threads retire just after their body returns.
	for sched.Stats().Threads > 0 {
		time.Sleep(time.Millisecond)
	}

	report = stressReport{
		Elapsed: time.Since(start).String(),
		Results: total,
		Stats:   sched.Stats(),
	}
	return
}

func cmdStress(conf *config) *cobra.Command {
	var o stressOpts
	cmd := &cobra.Command{
		Use:           "stress",
		Short:         "Exercise sleep and wakeup in process and report counters",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var report stressReport
			if report, err = runStress(context.Background(), conf, o); err != nil {
				return errors.Wrap(err, "stress run failed")
			}
			return printJSON(report)
		},
	}
	cmd.Flags().IntVar(&o.threads, "threads", 64, "number of sleeping threads")
	cmd.Flags().IntVar(&o.channels, "channels", 8, "number of wait channels")
	cmd.Flags().IntVar(&o.wakers, "wakers", 4, "number of waking goroutines")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Millisecond, "per-sleep timeout (0 disables)")
	cmd.Flags().DurationVar(&o.duration, "duration", 2*time.Second, "how long to run")
	cmd.Flags().Float64Var(&o.killRate, "kill-rate", 0.05, "fraction of waker actions that post a signal")
	return cmd
}
