package zap

import (
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Environment variables consulted, in order, for the alert topic and subject.
var (
	AlertTopicEnvVars = []string{
		"BULKQ_ERROR_NOTIFICATIONS_TOPIC_ARN",
		"BULKQ_SNS_ERROR_TOPIC_ARN",
		"ERROR_NOTIFICATIONS_TOPIC_ARN",
	}
	AlertSubjectEnvVars = []string{
		"BULKQ_ERROR_NOTIFICATIONS_SUBJECT",
		"BULKQ_SNS_ERROR_SUBJECT",
	}
)

// WithEnvironmentAlerts publishes error entries to the SNS topic named in the environment,
// using awsCfg for the client. Without a topic the option does nothing.
func WithEnvironmentAlerts(awsCfg aws.Config) Option {
	return func(opts *loggerOptions) {
		topicARN := firstEnv(AlertTopicEnvVars)
		if topicARN == "" {
			return
		}
		opts.notifier = NewSNSNotifier(sns.NewFromConfig(awsCfg), topicARN, SNSNotifierOptions{
			Subject: firstEnv(AlertSubjectEnvVars),
		})
	}
}

func firstEnv(keys []string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
