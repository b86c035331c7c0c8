package redis

const (
	// KeyPrefixScan is the prefix for cached assessment entries
	KeyPrefixScan = "advisor:scan:"
	// KeyPrefixSignal is the prefix for cached live-signal hints
	KeyPrefixSignal = "advisor:signal:"
	// KeyRecentScans is the key for the recent-scans list
	KeyRecentScans = "advisor:recent"
	// KeyNotifyPref is the key for the soft notification preference
	KeyNotifyPref = "advisor:pref:notify"
)

// ScanKey returns the Redis key for a cached assessment by canonical domain.
func ScanKey(domain string) string {
	return KeyPrefixScan + domain
}

// SignalKey returns the Redis key for a cached live-signal hint.
func SignalKey(domain string) string {
	return KeyPrefixSignal + domain
}
