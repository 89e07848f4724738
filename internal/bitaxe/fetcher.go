package bitaxe

import (
	"context"

	"codeberg.org/mutker/axemon/internal/poller"
)

// Fetcher adapts the HTTP client to the poller's Client contract.
type Fetcher struct {
	client *HTTPClient
}

func NewFetcher(host string, opts ...ClientOption) *Fetcher {
	return &Fetcher{client: NewClient(host, opts...)}
}

func (f *Fetcher) Fetch(ctx context.Context) (*poller.Sample, error) {
	info, err := f.client.SystemInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &poller.Sample{
		Hostname:       info.Hostname,
		Model:          info.Model,
		Hashrate:       info.HashRate,
		Power:          info.Power,
		Voltage:        info.Voltage,
		Current:        info.Current,
		Frequency:      info.Frequency,
		CoreVoltage:    info.CoreVoltage,
		ASICTemp:       info.Temp,
		VRegTemp:       info.VRTemp,
		FanSpeed:       info.FanSpeed,
		FanRPM:         info.FanRPM,
		SharesAccepted: info.SharesAccepted,
		SharesRejected: info.SharesRejected,
		Uptime:         info.UptimeSeconds,
		BestDiff:       float64(info.BestDiff),
		StratumURL:     info.StratumURL,
		StratumPort:    info.StratumPort,
		StratumUser:    info.StratumUser,
	}, nil
}
