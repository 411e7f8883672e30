// SipLens - VoIP Call Quality Monitoring and Alerting
// Copyright 2026 SipLens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/siplens/siplens

package notify

import (
	"context"

	"github.com/siplens/siplens/internal/logging"
	"github.com/siplens/siplens/internal/models"
)

// Notifier delivers one alert to the tenant's configured channels.
// Implementations own delivery and retry; the dispatcher only decides
// whether to invoke them.
type Notifier interface {
	Notify(ctx context.Context, event models.AlertEvent, channels, recipients []string) error
}

// LogNotifier writes notifications to the application log. It is the
// default transport until an external delivery integration is configured,
// and doubles as an audit record of what would have been sent.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event models.AlertEvent, channels, recipients []string) error {
	logging.Info().
		Str("tenant_id", event.TenantID).
		Str("call_id", event.CallID).
		Str("alert_type", string(event.AlertType)).
		Str("severity", string(event.Severity)).
		Strs("channels", channels).
		Strs("recipients", recipients).
		Str("message", event.Message).
		Msg("Alert notification")
	return nil
}
