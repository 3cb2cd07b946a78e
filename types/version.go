package types

// Version is the canonical project version.
// The CLI and the wire protocol share this version under the lockstep
// versioning policy.
const Version = "0.2.0"
