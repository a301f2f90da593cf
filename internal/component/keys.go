package component

import "fmt"

// Content types used for blob writes.
const (
	ContentTypeJS   = "application/javascript"
	ContentTypeJSON = "application/json"
)

// AliasKey is the mutable key mirroring the latest committed version.
func AliasKey(name string) string {
	return name
}

// VersionKey is the immutable key for version n written at ts (Unix nanoseconds).
func VersionKey(name string, n int, ts int64) string {
	return fmt.Sprintf("%s/v%d_%d", name, n, ts)
}

// DocsAliasKey is the mutable key for the latest documentation.
func DocsAliasKey(name string) string {
	return name + "-docs"
}

// DocsVersionKey is the immutable documentation key for version n.
func DocsVersionKey(name string, n int) string {
	return fmt.Sprintf("%s-docs-v%d", name, n)
}
