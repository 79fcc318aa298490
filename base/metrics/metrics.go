// Package metrics wraps datadog-go for settlement metric recording.
// Naming convention:
// - operation counters: *.success / *.err
// - durations: *.time
package metrics

import (
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/spf13/viper"

	"github.com/nifty-xyz/gomarket/base/log"
)

// Ender finishes a timer started by BumpTime.
type Ender interface {
	End()
}

// Service provides the metric recording interface.
type Service interface {
	BumpSum(key string, val float64, tags ...string)
	BumpHistogram(key string, val float64, tags ...string)
	BumpTime(key string, tags ...string) Ender
}

// New creates a dogstatsd-backed Service with pkgName as metric prefix.
// Returns a no-op service when no agent address is configured, so callers
// never need nil checks.
func New(pkgName string) Service {
	addr := viper.GetString("datadog_addr")
	if addr == "" {
		return &noop{}
	}
	client, err := statsd.NewBuffered(addr, 10)
	if err != nil {
		log.Log().WithFields(log.Fields{"addr": addr, "err": err}).Warn("can't talk to datadog agent, metrics disabled")
		return &noop{}
	}
	client.Tags = append(client.Tags,
		"env:"+viper.GetString("env_name"),
		"app:"+viper.GetString("app_name"),
	)
	return &dd{pkgName: pkgName, client: client}
}

type dd struct {
	pkgName string
	client  *statsd.Client
}

func (m *dd) BumpSum(key string, val float64, tags ...string) {
	_ = m.client.Count(m.pkgName+"."+key, int64(val), tags, 1)
}

func (m *dd) BumpHistogram(key string, val float64, tags ...string) {
	_ = m.client.Histogram(m.pkgName+"."+key, val, tags, 1)
}

func (m *dd) BumpTime(key string, tags ...string) Ender {
	return &timer{m: m, key: key, tags: tags, start: time.Now()}
}

type timer struct {
	m     *dd
	key   string
	tags  []string
	start time.Time
}

func (t *timer) End() {
	t.m.BumpHistogram(t.key+".time", float64(time.Since(t.start)/time.Millisecond), t.tags...)
}

type noop struct{}

func (n *noop) BumpSum(key string, val float64, tags ...string)       {}
func (n *noop) BumpHistogram(key string, val float64, tags ...string) {}
func (n *noop) BumpTime(key string, tags ...string) Ender             { return nopEnder{} }

type nopEnder struct{}

func (nopEnder) End() {}
