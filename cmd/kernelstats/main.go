// Command kernelstats serves the address-translation and snapshot
// cores' counters over /metrics, per SPEC_FULL.md §2's Prometheus
// wiring. It builds a small demo population first so a freshly started
// exporter has nonzero frame/TLB activity to show, then blocks serving
// HTTP.
package main

import (
	"net/http"
	"os"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"swxlate/src/kern"
	"swxlate/src/kernstats"
	"swxlate/src/mem"
)

var (
	app  = kingpin.New("kernelstats", "Serve address-translation and snapshot metrics over HTTP.")
	addr = app.Flag("listen", "address to serve /metrics on").Default(":9337").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	p := kern.NewProc(1, 0, "kernelstats-demo")
	for i := 0; i < 8; i++ {
		if _, err := p.Map(uintptr((i + 1) * mem.PGSIZE)); err != 0 {
			break
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(kernstats.NewCollector())

	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	kern.Log.WithField("addr", *addr).Info("kernelstats: serving /metrics")
	kern.Log.Fatal(http.ListenAndServe(*addr, nil))
}
