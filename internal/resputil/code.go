package resputil

type ErrorCode int

const (
	OK ErrorCode = 0

	// General
	InvalidRequest ErrorCode = 40001

	// Token
	TokenExpired ErrorCode = 40101
	TokenInvalid ErrorCode = 40102

	// Login
	InvalidCredentials ErrorCode = 40106

	// Authorization denial; message carries the human-readable reason
	PermissionDenied ErrorCode = 40301

	// Resource not found (also used for unknown invitation tokens, which
	// must not reveal whether a token ever existed)
	NotFound ErrorCode = 40401

	// Validation failures aggregated per field
	ValidationFailed ErrorCode = 42201

	// Refused because another row depends on the target (e.g. deleting a
	// project type still referenced by projects)
	ResourceInUse ErrorCode = 40901

	// Uniqueness constraint refused the write (e.g. second standard on a
	// project)
	Conflict ErrorCode = 40902

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
