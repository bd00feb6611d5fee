package registry

import "errors"

// ErrNotFound marks lookups of bounties that do not exist.
var ErrNotFound = errors.New("registry: bounty not found")

// ErrPolicyViolation marks requests rejected before any mutation happens:
// malformed inputs, disallowed transitions, submits by non-claimants.
var ErrPolicyViolation = errors.New("registry: policy violation")
