// internal/app/system/limits/limits.go
package limits

// Request body size limits for the JSON endpoints.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxFunctionBody is the maximum payload for POST /functions/{name}.
	MaxFunctionBody = 64 << 10 // 64 KB

	// MaxAuthBody is the maximum payload for the /auth endpoints.
	MaxAuthBody = 16 << 10 // 16 KB

	// MaxJoinBody is the maximum payload for join and invite submissions.
	MaxJoinBody = 16 << 10 // 16 KB
)
