// Package control provides the built-in pilots.
//
// [Hover] is a working altitude-and-attitude hold built from a [PID] loop
// on height and [LQR] state feedback on roll and yaw, all estimated from
// the two marker positions. [Fixed] replays a constant command; [NewIdle]
// and [NewDrift] are the two useful constants.
//
// [Chatty], [Sluggish], [Crashy], [Noisy] and [NewBroken] each violate one
// rule of the controller contract and are used to show the failure kinds.
package control
