// Package monitoring exports wallet counters for Prometheus.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsTotal counts host command lines by command and outcome
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_commands_total",
			Help: "Host command lines handled, by command and result.",
		},
		[]string{"command", "result"},
	)

	// RotationsTotal counts successful key rotations
	RotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_rotations_total",
			Help: "Key rotations persisted, by coin and origin.",
		},
		[]string{"coin", "origin"},
	)

	// StoreWritesTotal counts key store writes by result
	StoreWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_store_writes_total",
			Help: "Key store writes, by result.",
		},
		[]string{"result"},
	)

	// ExportsTotal counts private key exports shown on the device
	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_exports_total",
			Help: "Acknowledged private key exports, by coin.",
		},
		[]string{"coin"},
	)

	// WalletReady is 1 while the wallet accepts commands
	WalletReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_ready",
			Help: "1 when the wallet is initialized and ready.",
		},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal, RotationsTotal, StoreWritesTotal, ExportsTotal, WalletReady)

	startTime := time.Now()
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "wallet_uptime_seconds",
			Help: "Uptime of the wallet daemon in seconds.",
		},
		func() float64 {
			return time.Since(startTime).Seconds()
		}))
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
