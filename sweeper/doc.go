package sweeper

// sweeper runs the periodic background pass that bulk-flags lapsed entries
// as expired, independent of read traffic. It never surfaces errors to
// callers: a failed pass is logged and retried on the next tick. Its
// lifecycle is anchored to process start/stop, not to any request.
