// Package sim is the fixed-step tick scheduler.
//
// A [Simulator] owns the arena: an ordered list of agents, each with its
// sandboxed controller, rigid body, gate detector, telemetry log and
// metrics. Every tick it reads each running agent's pose, advances its gate
// detector, runs its controller, allocates the command to realizable
// actuator values, applies the result to the engine, records telemetry and
// checks liveness. Only then is the engine stepped.
//
// Failures are classified in two tiers. Anything an agent does wrong
// (panics, prints, slow or non-finite output, inactivity, leaving the
// arena) fails that agent alone and is reported through [Event] and
// [Result]. Configuration mistakes ([ConfigError]) and engine errors are
// returned to the caller and end the episode.
package sim
