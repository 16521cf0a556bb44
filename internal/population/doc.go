// Package population manages the set of simulated connections.
//
// The manager sizes the population from the data feed (ceil of rows over
// replicas) or a static count, creates connections instantly or at a paced
// rate, owns the live set exclusively, and runs the shutdown sequence:
// stop creation, close connections, grace period, then aggregator and feed.
package population
