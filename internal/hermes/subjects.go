package hermes

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	SubjectReverseRequest       = "weighting.reverse.request"
	SubjectCalculationCompleted = "weighting.calculation.completed"

	StreamName   = "WEIGHTING_EVENTS"
	StreamMaxAge = 30 * 24 * time.Hour

	// QueueGroup spreads reverse requests across service replicas so each
	// request runs once.
	QueueGroup = "weighting"
)

// StreamSubjects are captured by the events stream. Requests are plain
// core NATS and are not retained.
var StreamSubjects = []string{
	SubjectCalculationCompleted,
	"weighting.reverse.*.completed",
	"weighting.subset.>",
}

func SubjectReverseCompleted(runID string) string  { return "weighting.reverse." + runID + ".completed" }
func SubjectSubsetCommitted(subsetID string) string { return "weighting.subset." + subsetID + ".committed" }

// StreamConfig describes the JetStream stream that retains weighting events.
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamName,
		Description: "weighting calculations, reverse runs and plan commits",
		Subjects:    StreamSubjects,
		MaxAge:      StreamMaxAge,
		Storage:     jetstream.FileStorage,
	}
}
