// Package slack posts critical asset notices to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/reclaim/internal/asset"
	"github.com/linnemanlabs/reclaim/internal/session"
)

const (
	maxAdviceLen = 3000
	httpTimeout  = 10 * time.Second
)

// Notifier sends critical asset notices to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Notify posts the notice to the configured Slack webhook.
func (n *Notifier) Notify(ctx context.Context, notice *session.Notice) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(notice))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notice sent",
		"session_id", notice.SessionID,
		"manufacturer", notice.Record.Manufacturer,
		"band", notice.Band,
	)
	return nil
}

func buildMessage(n *session.Notice) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(n),
			{"type": "divider"},
			fieldsBlock(n),
			{"type": "divider"},
			adviceBlock(n),
			{"type": "divider"},
			contextBlock(n),
		},
	}
}

func headerBlock(n *session.Notice) map[string]any {
	text := fmt.Sprintf("%s Needs attention: %s %s", bandEmoji(n.Band), n.Record.Manufacturer, n.Record.ModelNumber)
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(n *session.Notice) map[string]any {
	rec := n.Record
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Band:* %s", n.Band),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Health:* %d/10", rec.HealthScore),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Remaining:* %s", remaining(n.Lifecycle)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Category:* %s", orDash(rec.Category)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Value:* %s", orDash(rec.EstimatedValue)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Replacement:* %s", orDash(rec.EstimatedReplacementCost)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func adviceBlock(n *session.Notice) map[string]any {
	var lines []string
	if f := n.Record.Diagnostics.PrimaryFaultPrediction; f != "" {
		lines = append(lines, "*Predicted fault:* "+f)
	}
	if a := n.Record.ReplaceVsRepair; a != "" {
		lines = append(lines, "*Repair or replace:* "+a)
	}
	if m := n.Record.MaintenanceAlert; m != "" {
		lines = append(lines, "*Maintenance:* "+m)
	}
	if l := n.Record.ReorderLink; n.Record.IsConsumable && l != "" {
		lines = append(lines, fmt.Sprintf("<%s|Reorder>", l))
	}

	text := truncate(strings.Join(lines, "\n"), maxAdviceLen)
	if text == "" {
		text = "_No advice available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

func contextBlock(n *session.Notice) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("reclaim • session %s • %s", n.SessionID, n.At.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func remaining(lc asset.Lifecycle) string {
	if lc.Kind == asset.KindConsumable {
		return fmt.Sprintf("%.0f%% supply", lc.Fraction*100)
	}
	return fmt.Sprintf("%d yrs (age %d)", lc.Remaining, lc.Age)
}

func bandEmoji(b asset.Band) string {
	switch b {
	case asset.BandCritical:
		return "\U0001f534" // red circle
	case asset.BandWatch:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
