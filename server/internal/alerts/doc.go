// Package alerts implements the rule evaluation engine and webhook delivery
// for QC alerting. Rules are evaluated against the project summary and each
// floor's summary after every change; webhooks are delivered to Teams, Slack
// or generic HTTP targets.
package alerts
