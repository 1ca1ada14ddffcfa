// Command memdump reports the Frame Tracker's live frame table
// (spec.md §6's dump_physmem_info, CLI surface "memdump [-a] [-p pid]").
// With -pprof, the same snapshot is rendered as a pprof profile.Profile
// instead of text, per SPEC_FULL.md §2's pprof wiring: one sample per
// owning pid, valued by the number of frames it holds, so `go tool
// pprof` can be pointed at a running simulation's memory footprint the
// same way it is pointed at a heap profile.
package main

import (
	"fmt"
	"os"
	"time"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"github.com/google/pprof/profile"

	"swxlate/src/defs"
	"swxlate/src/kern"
	"swxlate/src/mem"
)

var (
	app   = kingpin.New("memdump", "Dump the frame tracker's live allocation table.")
	all   = app.Flag("all", "dump every frame, not just allocated ones").Short('a').Bool()
	pid   = app.Flag("pid", "restrict the dump to one pid").Short('p').Int()
	max   = app.Flag("max", "maximum number of frames to report").Default("4096").Int()
	pprof = app.Flag("pprof", "render the snapshot as a pprof profile on stdout").Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Build a small demo population so an otherwise-empty simulation has
	// something to report (spec.md §8 scenario: fresh boot has zero
	// allocated frames, which is itself a valid, testable snapshot).
	p := kern.NewProc(1, 0, "memdump-demo")
	for i := 0; i < 4; i++ {
		if _, err := p.Map(uintptr((i + 1) * mem.PGSIZE)); err != 0 {
			kern.Log.WithField("err", err).Warn("memdump: demo mapping failed")
			break
		}
	}

	var recs []mem.FrameRecord_t
	if *pid > 0 {
		out, e := kern.DumpPhysmemInfoPid(defs.Pid_t(*pid), *max)
		if e != 0 {
			kern.Log.WithField("err", e).Fatal("memdump: dump failed")
		}
		recs = out
	} else {
		out, e := kern.DumpPhysmemInfo(*max)
		if e != 0 {
			kern.Log.WithField("err", e).Fatal("memdump: dump failed")
		}
		recs = out
	}
	if !*all {
		filtered := recs[:0]
		for _, r := range recs {
			if r.Allocated {
				filtered = append(filtered, r)
			}
		}
		recs = filtered
	}

	if *pprof {
		if err := writeProfile(recs); err != nil {
			kern.Log.WithError(err).Fatal("memdump: pprof export failed")
		}
		return
	}

	for _, r := range recs {
		fmt.Printf("frame %d: allocated=%v pid=%d refcnt=%d start_tick=%d\n",
			r.Index, r.Allocated, r.Pid, r.Refcnt, r.StartTick)
	}
}

// writeProfile renders recs as a pprof profile, one sample per owning
// pid, valued by frame count, and writes the gzip-encoded result to
// stdout.
func writeProfile(recs []mem.FrameRecord_t) error {
	byPid := map[int32]int64{}
	for _, r := range recs {
		if r.Allocated {
			byPid[int32(r.Pid)]++
		}
	}

	valType := &profile.ValueType{Type: "frames", Unit: "count"}
	prof := &profile.Profile{
		SampleType:    []*profile.ValueType{valType},
		PeriodType:    valType,
		Period:        1,
		TimeNanos:     time.Now().UnixNano(),
		DurationNanos: 0,
	}
	for owner, n := range byPid {
		prof.Sample = append(prof.Sample, &profile.Sample{
			Value: []int64{n},
			Label: map[string][]string{"pid": {fmt.Sprintf("%d", owner)}},
		})
	}
	return prof.Write(os.Stdout)
}
