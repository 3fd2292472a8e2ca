package config

import (
	"time"

	"github.com/secmon-lab/switchboard/pkg/utils/retry"
)

// DefaultPolicyForTest returns a policy that fails fast
func DefaultPolicyForTest() retry.Policy {
	return retry.Policy{MaxTries: 1, Timeout: time.Second}
}
