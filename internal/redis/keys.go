package redisx

import (
	"fmt"
	"strings"
)

const ns = "vastore:v1"

func KeyCatalogActive(limit int) string {
	return fmt.Sprintf("%s:catalog:active:%d", ns, limit)
}

func KeyCatalogPattern() string {
	return ns + ":catalog:*"
}

func KeyListing(id string) string {
	return fmt.Sprintf("%s:catalog:listing:%s", ns, id)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyLoginFailures(email string) string {
	return fmt.Sprintf("%s:login:fails:%s", ns, strings.ToLower(email))
}

func KeyLoginLock(email string) string {
	return fmt.Sprintf("%s:login:lock:%s", ns, strings.ToLower(email))
}

func KeyIdempotency(scope, key string) string {
	return fmt.Sprintf("%s:idem:%s:%s", ns, scope, key)
}

func ChannelListingsChanged() string {
	return ns + ":listings:changed"
}
