package userconfig

// userconfig parses and validates the operator-provided YAML configuration:
// where the record store lives, how often the sweeper runs, where metrics
// are served, and which tenants exist with which storage limits.
