package athena

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricTCPMsgInCount           = []string{"athena", "tcp", "msg", "in", "count"}
	MetricTCPMsgInBytes           = []string{"athena", "tcp", "msg", "in", "bytes"}
	MetricTCPMsgOutCount          = []string{"athena", "tcp", "msg", "out", "count"}
	MetricTCPMsgOutBytes          = []string{"athena", "tcp", "msg", "out", "bytes"}
	MetricTCPHeaderFailureCount   = []string{"athena", "tcp", "receive", "header", "failure", "count"}
	MetricTCPBadMessageLength     = []string{"athena", "tcp", "receive", "bad", "length", "count"}
	MetricTCPReadErrorCount       = []string{"athena", "tcp", "receive", "error", "count"}
	MetricTCPReadWouldBlockCount  = []string{"athena", "tcp", "receive", "would", "block", "count"}
	MetricTCPShortReadCount       = []string{"athena", "tcp", "receive", "short", "count"}
	MetricTCPShortWriteCount      = []string{"athena", "tcp", "send", "short", "count"}
	MetricTCPDecodeFailedCount    = []string{"athena", "tcp", "decode", "failed", "count"}
	MetricTCPLinkEstCount         = []string{"athena", "tcp", "link", "established", "count"}
	MetricTCPLinkAcceptCount      = []string{"athena", "tcp", "link", "accepted", "count"}
	MetricTCPLinkAcceptErrorCount = []string{"athena", "tcp", "link", "accept", "error", "count"}
	MetricTCPLinkClosedCount      = []string{"athena", "tcp", "link", "closed", "count"}
)

type TelemetryLabel string

var (
	LabelError    TelemetryLabel = "error"
	LabelLinkName TelemetryLabel = "link_name"
	LabelPeerAddr TelemetryLabel = "peer_addr"
	LabelLocal    TelemetryLabel = "local"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}
