package notification

import (
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AnomFIN/AnomRadar/pkg/engine"
	apperrors "github.com/AnomFIN/AnomRadar/pkg/errors"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

const notifierWorkers = 5

// Notifier delivers scan notifications in the background so the executor
// never blocks on Discord. When no token is configured the notifier is
// disabled and Enqueue becomes a no-op.
type Notifier struct {
	client *NotificationClient
	queue  chan Message
	wg     sync.WaitGroup
	once   sync.Once
}

func NewNotifier() *Notifier {
	n := &Notifier{}

	client, err := NewNotificationClient()
	if err != nil {
		if err == apperrors.ErrDiscordNotConfigured {
			log.Debug("Discord notifications disabled, DISCORD_TOKEN not set")
		} else {
			log.Warnf("Discord notifications disabled: %v", err)
		}
		return n
	}

	n.client = client
	n.queue = make(chan Message, 64)

	for i := 0; i < notifierWorkers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for msg := range n.queue {
				if err := n.client.Send(msg); err != nil {
					log.Errorf("Failed to send Discord notification: %v", err)
				}
				time.Sleep(250 * time.Millisecond)
			}
		}()
	}

	return n
}

func (n *Notifier) Enabled() bool {
	return n.client != nil
}

// Enqueue hands a message to the delivery workers. Messages are dropped when
// the queue is full rather than stalling a scan.
func (n *Notifier) Enqueue(msg Message) {
	if n.client == nil {
		return
	}
	select {
	case n.queue <- msg:
	default:
		log.Warnf("Notification queue full, dropping message: %s", msg.Title)
	}
}

// Close drains the queue and disconnects from Discord.
func (n *Notifier) Close() {
	if n.client == nil {
		return
	}
	n.once.Do(func() {
		close(n.queue)
		n.wg.Wait()
		if err := n.client.Close(); err != nil {
			log.Errorf("Error closing Discord client: %v", err)
		}
	})
}

// ScanCompletedMessage summarizes a finished scan as a severity-colored
// embed.
func ScanCompletedMessage(scanID, seed string, result *engine.ScanResult) Message {
	fields := map[string]string{
		"Scan ID":    scanID,
		"Risk Score": fmt.Sprintf("%d / 100", result.RiskScore),
		"Risk Level": string(result.RiskLevel),
		"Domains":    fmt.Sprintf("%d", len(result.Domains)),
		"Findings":   fmt.Sprintf("%d", len(result.Findings)),
	}

	counts := result.SeverityCounts()
	labels := []struct {
		severity probes.Severity
		label    string
	}{
		{probes.SeverityCritical, "Critical"},
		{probes.SeverityHigh, "High"},
		{probes.SeverityMedium, "Medium"},
	}
	for _, entry := range labels {
		if counts[entry.severity] > 0 {
			fields[entry.label] = fmt.Sprintf("%d", counts[entry.severity])
		}
	}

	title := fmt.Sprintf("Scan completed: %s", seed)
	description := fmt.Sprintf("Passive reconnaissance of %s finished with risk level %s.",
		seed, result.RiskLevel)

	if result.Degraded() {
		title = fmt.Sprintf("Scan completed with warnings: %s", seed)
		failed := result.FailedProbes()
		fields["Failed Probes"] = strings.Join(failed, ", ")
		description = fmt.Sprintf("Passive reconnaissance of %s finished with risk level %s, %d probe(s) produced no result.",
			seed, result.RiskLevel, len(failed))
	}

	return Message{
		Title:       title,
		Description: description,
		Severity:    severityForRisk(result.RiskLevel),
		Fields:      fields,
	}
}

// ScanFailedMessage reports a scan that never reached the probe phase.
func ScanFailedMessage(scanID, seed, reason string) Message {
	return Message{
		Title:       fmt.Sprintf("Scan failed: %s", seed),
		Description: reason,
		Severity:    "critical",
		Fields: map[string]string{
			"Scan ID": scanID,
		},
	}
}

func severityForRisk(level engine.RiskLevel) string {
	switch level {
	case engine.RiskHigh:
		return "high"
	case engine.RiskMedium:
		return "medium"
	case engine.RiskLow:
		return "low"
	default:
		return "info"
	}
}
