// Package analysis looks at recorded telemetry after the fact.
//
// [PowerSpectrum] and [DominantFrequency] expose oscillation in a single
// column, such as a pilot hunting around its target altitude:
//
//	z, _ := log.Scalar("p_z")
//	hz := analysis.DominantFrequency(z, dt)
package analysis
