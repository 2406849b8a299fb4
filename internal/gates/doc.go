// Package gates models the ring course agents race through and the
// per-agent detector that scores progress along it.
//
// A [Gate] is a disk of given radius and thickness whose local x axis is
// its normal. A [Detector] holds one agent's current target and, once per
// tick, compares the previous and current position samples:
//
//   - crossing the previous gate from +x to -x inside its disk steps back
//   - being anywhere inside the volume of the last gate finishes the course
//   - crossing the current gate from -x to +x inside its disk steps forward
//
// A sample pair that jumps over a gate without both endpoints inside the
// disk does not count. At the default tick rate this only happens when an
// agent is far above racing speed.
package gates
