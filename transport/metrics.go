package transport

import "github.com/VictoriaMetrics/metrics"

var (
	framesSent     = metrics.NewCounter("simlink_frames_sent_total")
	framesReceived = metrics.NewCounter("simlink_frames_received_total")
	bytesSent      = metrics.NewCounter("simlink_bytes_sent_total")

	connectionsOpened = metrics.NewCounter("simlink_connections_opened_total")
	connectionsClosed = metrics.NewCounter("simlink_connections_closed_total")

	wireErrors      = metrics.NewCounter("simlink_wire_errors_total")
	droppedMessages = metrics.NewCounter("simlink_dropped_messages_total")
)
