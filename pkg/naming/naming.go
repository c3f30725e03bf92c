// Package naming derives deterministic resource names for a service.
package naming

import (
	"fmt"
	"regexp"
	"strings"
)

// BulkQueueSuffix is appended to the service name to form its bulk transition queue.
const BulkQueueSuffix = "-bulktq"

var (
	nonAlnum  = regexp.MustCompile(`[^a-z0-9-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

func sanitizePart(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "_", "-")
	value = strings.ReplaceAll(value, " ", "-")
	value = nonAlnum.ReplaceAllString(value, "-")
	value = multiDash.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-")
	return value
}

// NormalizeStage maps stage aliases to canonical values.
func NormalizeStage(stage string) string {
	stage = strings.ToLower(strings.TrimSpace(stage))
	switch stage {
	case "prod", "production", "live":
		return "live"
	case "dev", "development":
		return "dev"
	case "stg", "stage", "staging":
		return "stage"
	case "test", "testing":
		return "test"
	default:
		return sanitizePart(stage)
	}
}

// BulkQueueName returns the name of the service's bulk transition queue: <service>-bulktq.
// The service name is used as given; SQS queue names are case sensitive.
func BulkQueueName(service string) string {
	return strings.TrimSpace(service) + BulkQueueSuffix
}

// QueueHost returns the regional SQS endpoint host.
func QueueHost(region string) string {
	return fmt.Sprintf("sqs.%s.amazonaws.com", strings.TrimSpace(region))
}

// BulkQueueURL returns https://{queueHost}/{accountID}/{service}-bulktq.
func BulkQueueURL(queueHost, accountID, service string) string {
	return fmt.Sprintf("https://%s/%s/%s",
		strings.TrimSuffix(strings.TrimSpace(queueHost), "/"),
		strings.TrimSpace(accountID),
		BulkQueueName(service),
	)
}

// TableName returns a deterministic table name:
// - <service>-<resource>
// - <service>-<resource>-<stage> (when stage is provided)
func TableName(service, resource, stage string) string {
	parts := []string{sanitizePart(service)}
	if r := sanitizePart(resource); r != "" {
		parts = append(parts, r)
	}
	if s := NormalizeStage(stage); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "-")
}
