// Package kernstats exports the address-translation and snapshot cores'
// counters as Prometheus metrics (SPEC_FULL.md §2's domain-stack
// wiring for github.com/prometheus/client_golang).
//
// Grounded on the teacher pack's talyz-systemd_exporter: a Collector
// holding prometheus.Desc fields built once in NewCollector, with
// Describe/Collect reading live state on every scrape rather than
// pre-registering individual gauges, the same shape that exporter uses
// for systemd unit state.
package kernstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"swxlate/src/ipt"
	"swxlate/src/mem"
	"swxlate/src/snap"
	"swxlate/src/tlb"
)

const namespace = "swxlate"

// Collector implements prometheus.Collector over the package-level
// Frame Tracker, Inverted Page Table, Software TLB, and snapshot
// manager singletons.
type Collector struct {
	framesFree    *prometheus.Desc
	framesTotal   *prometheus.Desc
	tlbHits       *prometheus.Desc
	tlbMisses     *prometheus.Desc
	iptBuckets    *prometheus.Desc
	snapshotsLive *prometheus.Desc
}

// NewCollector returns a Collector ready to register with a
// prometheus.Registry.
func NewCollector() *Collector {
	return &Collector{
		framesFree: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "frames_free"),
			"Number of unallocated physical frames.", nil, nil,
		),
		framesTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "frames_total"),
			"Total number of physical frames tracked.", nil, nil,
		),
		tlbHits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tlb_hits_total"),
			"Cumulative software-TLB hits.", nil, nil,
		),
		tlbMisses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tlb_misses_total"),
			"Cumulative software-TLB misses.", nil, nil,
		),
		iptBuckets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "ipt_buckets"),
			"Number of inverted-page-table hash buckets.", nil, nil,
		),
		snapshotsLive: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "snapshots_live"),
			"Number of snapshots currently registered.", nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.framesFree
	ch <- c.framesTotal
	ch <- c.tlbHits
	ch <- c.tlbMisses
	ch <- c.iptBuckets
	ch <- c.snapshotsLive
}

// Collect implements prometheus.Collector, reading every counter live.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.framesFree, prometheus.GaugeValue, float64(mem.Physmem.FreeCount()))
	ch <- prometheus.MustNewConstMetric(c.framesTotal, prometheus.GaugeValue, float64(mem.PFNNUM))

	hits, misses := tlb.Table.Info()
	ch <- prometheus.MustNewConstMetric(c.tlbHits, prometheus.CounterValue, float64(hits))
	ch <- prometheus.MustNewConstMetric(c.tlbMisses, prometheus.CounterValue, float64(misses))

	ch <- prometheus.MustNewConstMetric(c.iptBuckets, prometheus.GaugeValue, float64(ipt.Buckets))
	ch <- prometheus.MustNewConstMetric(c.snapshotsLive, prometheus.GaugeValue, float64(snap.Count()))
}
