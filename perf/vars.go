package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency  = metric.NewHistogram("1m1s")
	FloodBatchSize   = metric.NewHistogram("10s1s")
	LsaAccepted      = metric.NewCounter("10s1s")
	LsaDropped       = metric.NewCounter("10s1s")
	UpdatesPerSecond = metric.NewCounter("10s1s")
	RecvsPerSecond   = metric.NewCounter("10s1s")
	Handshakes       = metric.NewCounter("1m1s")
	SendFailures     = metric.NewCounter("1m1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("sospf:FloodBatchSize", FloodBatchSize)

	expvar.Publish("sospf:LsaAccepted/s", LsaAccepted)
	expvar.Publish("sospf:LsaDropped/s", LsaDropped)
	expvar.Publish("sospf:Updates/s", UpdatesPerSecond)
	expvar.Publish("sospf:Recvs/s", RecvsPerSecond)
	expvar.Publish("sospf:Handshakes", Handshakes)
	expvar.Publish("sospf:SendFailures", SendFailures)
	expvar.Publish("sospf:DispatchLatency (µs)", DispatchLatency)
}
