package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// deliver sends webhook notifications for a to all configured targets.
// Targets whose URL environment variable is unset are skipped.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(url, a)
		case "teams":
			err = e.sendTeams(url, a)
		case "http":
			err = e.sendHTTP(url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"err", err,
			)
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"rule", a.RuleName,
				"state", a.State,
			)
		}
	}
}

func (e *Engine) sendSlack(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s %s\n%s", severityLabel(a.Severity), stateLabel(a.State), a.Message, qcLine(a)),
	})
	return e.post(url, body)
}

func (e *Engine) sendTeams(url string, a *Alert) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": themeColor(a),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("Window QC alert: %s (%s)", a.RuleName, a.SubjectLabel),
		"text":       a.Message,
		"sections": []map[string]interface{}{{
			"facts": []map[string]string{
				{"name": "Subject", "value": a.SubjectLabel},
				{"name": "Pass", "value": strconv.Itoa(a.Counts.Pass)},
				{"name": "Warning", "value": strconv.Itoa(a.Counts.Warning)},
				{"name": "Fail", "value": strconv.Itoa(a.Counts.Fail)},
				{"name": "Pass rate", "value": fmt.Sprintf("%.1f%%", a.PassRate)},
			},
		}},
	}
	body, _ := json.Marshal(payload)
	return e.post(url, body)
}

func (e *Engine) sendHTTP(url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{
		"source":  "window-qc",
		"subject": a.SubjectLabel,
		"alert":   a,
	})
	return e.post(url, body)
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// qcLine summarises the subject's window counts, e.g.
// "Floor 2: 3 pass / 1 warning / 2 fail (50.0% pass)".
func qcLine(a *Alert) string {
	return fmt.Sprintf("%s: %d pass / %d warning / %d fail (%.1f%% pass)",
		a.SubjectLabel, a.Counts.Pass, a.Counts.Warning, a.Counts.Fail, a.PassRate)
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func themeColor(a *Alert) string {
	if a.State == "resolved" {
		return "2EB67D"
	}
	switch a.Severity {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}

func stateLabel(s string) string {
	if s == "resolved" {
		return "RESOLVED"
	}
	return "FIRING"
}
