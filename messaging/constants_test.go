package messaging

// Time bounds used by normalization tests.
const (
	testBeforeMillis int64 = 1700000000000
	testAfterMillis  int64 = 1699999000000
)

// Test page and batch sizes.
const (
	testPageSize      = 25
	testMessagesPerDM = 3
)
