// Package services implements the alert dispatch logic: deciding whether an
// inbound notification posts a new Rocket.Chat message or updates a previous
// one, and attaching rendered Zabbix graphs. This file centralizes the
// service-level error values so callers can check them consistently.
package services

import "errors"

// ErrBadRecipient is returned when the recipient is not addressed to a user
// ("@name") or a channel ("#name"). It is raised before any network call.
var ErrBadRecipient = errors.New(`recipient name must start with "@" or "#"`)
