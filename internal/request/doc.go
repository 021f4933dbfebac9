// Package request implements the passenger request record exchanged between
// request sources, the dispatcher and the unit controllers.
//
// A request carries its scheduled time of day, travel direction, origin floor,
// destination selector, lifecycle flags and an optional fault annotation. It
// has a single-line text encoding used by the UDP and QUIC transports:
//
//	HH:mm:ss.SSS;DIR;origin;destination;loaded;processed[;FAULT]
package request
