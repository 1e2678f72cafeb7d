package core

import "errors"

// Sentinel errors callers branch on with errors.Is. Everything else is wrapped
// with %w at the call site.
var (
	// ErrEnvFileExtension — the environment override file is not a .json file.
	ErrEnvFileExtension = errors.New("environment file must have a .json extension")

	// ErrMissingInput — a required configuration input is absent.
	ErrMissingInput = errors.New("missing required input")

	// ErrServiceNotFound — describe-services returned no matching service.
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceNotActive — the service exists but is not in the ACTIVE state.
	ErrServiceNotActive = errors.New("service is not active")

	// ErrUnsupportedController — the service uses a deployment controller other
	// than the platform default; only ECS rolling update is supported.
	ErrUnsupportedController = errors.New("unsupported deployment controller")
)
