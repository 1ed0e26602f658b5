package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what happens in rooms. A nil *Metrics is valid and counts nothing.
type Metrics struct {
	Registry *prometheus.Registry

	roomsCreated      prometheus.Counter
	roomJoins         *prometheus.CounterVec
	messagesSent      prometheus.Counter
	messagesDeleted   prometheus.Counter
	sessionsEnded     prometheus.Counter
	feedSubscriptions *prometheus.GaugeVec
}

// NewMetrics creates the chat metrics on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempchat_rooms_created_total",
			Help: "Number of rooms created",
		}),
		roomJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempchat_room_joins_total",
			Help: "Join attempts by result",
		}, []string{"result"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempchat_messages_sent_total",
			Help: "Number of messages stored",
		}),
		messagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempchat_messages_deleted_total",
			Help: "Number of messages deleted by their sender",
		}),
		sessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempchat_sessions_ended_total",
			Help: "Number of rooms marked inactive",
		}),
		feedSubscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tempchat_feed_subscriptions",
			Help: "Open realtime subscriptions by transport",
		}, []string{"transport"}),
	}
	m.Registry.MustRegister(
		m.roomsCreated,
		m.roomJoins,
		m.messagesSent,
		m.messagesDeleted,
		m.sessionsEnded,
		m.feedSubscriptions,
	)
	return m
}

func (m *Metrics) roomCreated() {
	if m != nil {
		m.roomsCreated.Inc()
	}
}

func (m *Metrics) roomJoined() {
	if m != nil {
		m.roomJoins.WithLabelValues("ok").Inc()
	}
}

func (m *Metrics) joinFailed() {
	if m != nil {
		m.roomJoins.WithLabelValues("rejected").Inc()
	}
}

func (m *Metrics) messageSent() {
	if m != nil {
		m.messagesSent.Inc()
	}
}

func (m *Metrics) messageDeleted() {
	if m != nil {
		m.messagesDeleted.Inc()
	}
}

func (m *Metrics) sessionEnded() {
	if m != nil {
		m.sessionsEnded.Inc()
	}
}

// SubscriptionOpened and SubscriptionClosed track realtime subscribers per transport
func (m *Metrics) SubscriptionOpened(transport string) {
	if m != nil {
		m.feedSubscriptions.WithLabelValues(transport).Inc()
	}
}

func (m *Metrics) SubscriptionClosed(transport string) {
	if m != nil {
		m.feedSubscriptions.WithLabelValues(transport).Dec()
	}
}
