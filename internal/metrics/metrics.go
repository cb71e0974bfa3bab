// Package metrics exposes operational counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agenda"

var (
	registry = prometheus.NewRegistry()

	messagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_received_total",
		Help:      "Inbound chat messages by type (text, voice, command).",
	}, []string{"type"})

	intentsParsed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intents_total",
		Help:      "Interpreted intents by kind.",
	}, []string{"kind"})

	interpretationErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interpretation_errors_total",
		Help:      "Utterances the NLU could not interpret.",
	})

	outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcomes_total",
		Help:      "Turn outcomes by kind.",
	}, []string{"kind"})

	confirmations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmations_total",
		Help:      "Answers to pending confirmations by result (confirmed, cancelled).",
	}, []string{"result"})

	backendErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_errors_total",
		Help:      "Calendar backend failures by operation.",
	}, []string{"op"})

	transcriptionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcription_errors_total",
		Help:      "Voice messages that could not be transcribed.",
	})
)

func init() {
	registry.MustRegister(
		messagesReceived,
		intentsParsed,
		interpretationErrors,
		outcomes,
		confirmations,
		backendErrors,
		transcriptionErrors,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// MessageReceived counts an inbound message of the given type.
func MessageReceived(kind string) { messagesReceived.WithLabelValues(kind).Inc() }

// IntentParsed counts an interpreted intent.
func IntentParsed(kind string) { intentsParsed.WithLabelValues(kind).Inc() }

// InterpretationFailed counts an utterance the NLU could not interpret.
func InterpretationFailed() { interpretationErrors.Inc() }

// OutcomeEmitted counts a turn outcome.
func OutcomeEmitted(kind string) { outcomes.WithLabelValues(kind).Inc() }

// ConfirmationAnswered counts a reply to a pending confirmation.
func ConfirmationAnswered(confirmed bool) {
	result := "cancelled"
	if confirmed {
		result = "confirmed"
	}
	confirmations.WithLabelValues(result).Inc()
}

// BackendFailed counts a calendar backend failure.
func BackendFailed(op string) { backendErrors.WithLabelValues(op).Inc() }

// TranscriptionFailed counts a voice message that could not be transcribed.
func TranscriptionFailed() { transcriptionErrors.Inc() }

// Handler serves the metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Reset resets all counters to zero (useful for testing).
func Reset() {
	messagesReceived.Reset()
	intentsParsed.Reset()
	outcomes.Reset()
	confirmations.Reset()
	backendErrors.Reset()
}
