package redisx

import "fmt"

const ns = "tablecart:v1"

func KeyTicketList(limit int) string {
	return fmt.Sprintf("%s:tickets:recent:%d", ns, limit)
}

// PrefixRateLimit namespaces one rate limiter's keys; the limiter
// appends its own per-caller suffix.
func PrefixRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyIdemSubmit(sessionCode, idemKey string) string {
	return fmt.Sprintf("%s:idem:submit:%s:%s", ns, sessionCode, idemKey)
}

func ChannelCallUpdates() string {
	return ns + ":call:updates"
}
