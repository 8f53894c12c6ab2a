// Package notifier delivers rendered notifications to the configured sinks
// (OS tray, optional Telegram mirror) through a bounded queue with a worker
// pool, rate limiting, and per-sink retry.
package notifier
